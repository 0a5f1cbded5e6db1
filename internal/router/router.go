package router

import (
	"net/http"

	"github.com/quipstakes/backend/internal/handlers"
)

// New returns an http.Handler serving the engine API under /api/v1. The
// caller wraps it with player auth and CORS.
func New(roundHandler *handlers.RoundHandler, captionHandler *handlers.CaptionHandler, walletHandler *handlers.WalletHandler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	mux.HandleFunc("POST "+base+"/rounds", roundHandler.StartRound)
	mux.HandleFunc("POST "+base+"/rounds/{id}/vote", roundHandler.Vote)
	mux.HandleFunc("POST "+base+"/captions", captionHandler.Submit)
	mux.HandleFunc("GET "+base+"/quota", captionHandler.GetQuota)
	mux.HandleFunc("GET "+base+"/wallet", walletHandler.Wallet)
	mux.HandleFunc("GET "+base+"/wallet/ledger", walletHandler.Ledger)
	return mux
}
