package handler

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"

	"cointrack/internal/logic"
	"cointrack/internal/stream"
	"cointrack/internal/svc"
	"cointrack/internal/types"
)

func StreamMarketsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return streamHandler(svcCtx, stream.Markets)
}

func StreamWatchlistHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return streamHandler(svcCtx, stream.Watchlist)
}

func streamHandler(svcCtx *svc.ServiceContext, mode stream.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.StreamReq
		if err := httpx.Parse(r, &req); err != nil {
			writeBadRequest(w, r, err)
			return
		}

		setup, err := stream.ParseRequest(mode, &req, svcCtx.Config.Stream.PerPage)
		if err != nil {
			if errors.Is(err, stream.ErrUnsupportedCurrency) {
				httpx.WriteJsonCtx(r.Context(), w, http.StatusBadRequest, types.MessageResp{Message: "Unsupported currency"})
				return
			}
			writeBadRequest(w, r, err)
			return
		}

		opts := stream.Options{Interval: svcCtx.Config.Stream.Interval}
		source := logic.NewCachedSource(svcCtx)
		if err := stream.Serve(w, r, source, svcCtx.Preferences, setup, opts); err != nil {
			logx.WithContext(r.Context()).Infof("stream: session ended: %v", err)
		}
	}
}
