package logic

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/cache"
	"cointrack/internal/svc"
	"cointrack/internal/types"
	"cointrack/pkg/market"
)

type CoinLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCoinLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CoinLogic {
	return &CoinLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Coin returns {detail, chart}. Any upstream failure is reported as 502.
func (l *CoinLogic) Coin(req *types.CoinReq) (resp json.RawMessage, err error) {
	q, err := ParseCoinReq(req)
	if err != nil {
		return nil, err
	}
	body, err := coinCall(l.svcCtx, q).cached(l.ctx, l.svcCtx)
	if err != nil {
		l.Errorf("coin id=%s vs=%s days=%d err=%v", q.ID, q.Currency, q.Days, err)
		return nil, &ProxyError{Status: http.StatusBadGateway, Message: msgCoinFailed}
	}
	return body, nil
}

func coinCall(svcCtx *svc.ServiceContext, q market.CoinQuery) upstreamCall {
	return upstreamCall{
		key: cache.CoinKey(q),
		ttl: svcCtx.Policies.Coin.Fresh,
		load: func(ctx context.Context) (any, error) {
			return svcCtx.Upstream.Coin(ctx, q)
		},
	}
}
