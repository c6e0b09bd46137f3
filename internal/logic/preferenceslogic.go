package logic

import (
	"context"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/svc"
	"cointrack/internal/types"
	"cointrack/pkg/market"
)

type PreferencesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPreferencesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PreferencesLogic {
	return &PreferencesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *PreferencesLogic) Preferences() (*types.PreferencesResp, error) {
	return l.snapshot(), nil
}

func (l *PreferencesLogic) SetCurrency(req *types.SetCurrencyReq) (*types.PreferencesResp, error) {
	c, ok := market.ParseCurrency(req.Currency)
	if !ok {
		return nil, badRequest(msgUnsupportedCurrency)
	}
	if err := l.svcCtx.Preferences.SetCurrency(c); err != nil {
		return nil, badRequest(msgUnsupportedCurrency)
	}
	l.Infof("preferences currency=%s", c)
	return l.snapshot(), nil
}

func (l *PreferencesLogic) ToggleWatch(req *types.ToggleWatchReq) (*types.PreferencesResp, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, badRequest(msgMissingCoinID)
	}
	l.svcCtx.Preferences.ToggleWatch(req.ID)
	return l.snapshot(), nil
}

func (l *PreferencesLogic) snapshot() *types.PreferencesResp {
	store := l.svcCtx.Preferences
	return &types.PreferencesResp{
		Currency:  string(store.Currency()),
		Watchlist: store.Watchlist(),
	}
}
