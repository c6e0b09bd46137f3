package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"cointrack/internal/logic"
	"cointrack/internal/svc"
	"cointrack/internal/types"
)

func CoinHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", svcCtx.Policies.Coin.Header())

		var req types.CoinReq
		if err := httpx.Parse(r, &req); err != nil {
			writeBadRequest(w, r, err)
			return
		}

		l := logic.NewCoinLogic(r.Context(), svcCtx)
		resp, err := l.Coin(&req)
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
