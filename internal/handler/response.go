package handler

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"cointrack/internal/logic"
	"cointrack/internal/types"
)

// writeError renders err as {"message": ...}. Anything other than a
// ProxyError is an internal failure.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *logic.ProxyError
	if errors.As(err, &perr) {
		httpx.WriteJsonCtx(r.Context(), w, perr.Status, types.MessageResp{Message: perr.Message})
		return
	}
	httpx.WriteJsonCtx(r.Context(), w, http.StatusInternalServerError, types.MessageResp{Message: "Internal server error"})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteJsonCtx(r.Context(), w, http.StatusBadRequest, types.MessageResp{Message: err.Error()})
}
