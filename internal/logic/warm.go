package logic

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/svc"
	"cointrack/pkg/market"
)

// WarmPlan lists the listings refreshed ahead of callers.
type WarmPlan struct {
	Currencies []market.Currency
	Pages      int
	PerPage    int
}

// Warm refills the cache entries for every planned markets page and for the
// global stats. It continues past failures and returns them joined.
func Warm(ctx context.Context, svcCtx *svc.ServiceContext, plan WarmPlan) error {
	currencies := plan.Currencies
	if len(currencies) == 0 {
		currencies = []market.Currency{market.DefaultCurrency}
	}
	pages := max(plan.Pages, 1)

	var errs []error
	for _, vs := range currencies {
		for page := 1; page <= pages; page++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q := market.MarketsQuery{Currency: vs, PerPage: plan.PerPage, Page: page}.Normalize()
			if _, err := marketsCall(svcCtx, q).fill(ctx, svcCtx); err != nil {
				logx.WithContext(ctx).Errorf("warm markets vs=%s page=%d err=%v", vs, page, err)
				errs = append(errs, err)
			}
		}
	}
	if _, err := globalCall(svcCtx).fill(ctx, svcCtx); err != nil {
		logx.WithContext(ctx).Errorf("warm global err=%v", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
