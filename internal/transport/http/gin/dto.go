package httpgin

import "github.com/kirinyoku/tix-ledger/internal/domain"

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type TransactionResponse struct {
	Digest string         `json:"digest"`
	Result *domain.Result `json:"result"`
}
