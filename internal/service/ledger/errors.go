package ledger

import "errors"

var ErrUnknownOp = errors.New("unknown operation")
