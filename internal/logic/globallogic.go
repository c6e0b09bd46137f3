package logic

import (
	"context"
	"encoding/json"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/cache"
	"cointrack/internal/svc"
	"cointrack/pkg/market"
)

type GlobalLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGlobalLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GlobalLogic {
	return &GlobalLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Global returns {"data": GlobalStats}.
func (l *GlobalLogic) Global() (resp json.RawMessage, err error) {
	body, err := globalCall(l.svcCtx).cached(l.ctx, l.svcCtx)
	if err != nil {
		l.Errorf("global err=%v", err)
		return nil, upstreamFailure(err, msgGlobalFailed)
	}
	return body, nil
}

func globalCall(svcCtx *svc.ServiceContext) upstreamCall {
	return upstreamCall{
		key: cache.GlobalKey(),
		ttl: svcCtx.Policies.Global.Fresh,
		load: func(ctx context.Context) (any, error) {
			stats, err := svcCtx.Upstream.Global(ctx)
			if err != nil {
				return nil, err
			}
			return market.GlobalResponse{Data: *stats}, nil
		},
	}
}
