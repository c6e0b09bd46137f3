package logic

import (
	"context"
	"encoding/json"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/cache"
	"cointrack/internal/svc"
	"cointrack/internal/types"
	"cointrack/pkg/market"
)

type MarketsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewMarketsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MarketsLogic {
	return &MarketsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *MarketsLogic) Markets(req *types.MarketsReq) (resp json.RawMessage, err error) {
	q, err := ParseMarketsReq(req)
	if err != nil {
		return nil, err
	}
	body, err := marketsCall(l.svcCtx, q).cached(l.ctx, l.svcCtx)
	if err != nil {
		l.Errorf("markets vs=%s per_page=%d page=%d ids=%d err=%v", q.Currency, q.PerPage, q.Page, len(q.IDs), err)
		return nil, upstreamFailure(err, msgMarketsFailed)
	}
	return body, nil
}

func marketsCall(svcCtx *svc.ServiceContext, q market.MarketsQuery) upstreamCall {
	return upstreamCall{
		key: cache.MarketsKey(q),
		ttl: svcCtx.Policies.Markets.Fresh,
		load: func(ctx context.Context) (any, error) {
			coins, err := svcCtx.Upstream.Markets(ctx, q)
			if err != nil {
				return nil, err
			}
			if coins == nil {
				coins = []market.MarketCoin{}
			}
			return coins, nil
		},
	}
}
