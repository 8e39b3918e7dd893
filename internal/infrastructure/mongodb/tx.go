package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner runs functions inside a MongoDB multi-document transaction. The
// session context is passed through as the plain context, so every repository
// call made inside fn joins the transaction.
type TxRunner struct {
	client *Client
}

// NewTxRunner creates a transaction runner on top of the client.
func NewTxRunner(client *Client) *TxRunner {
	return &TxRunner{client: client}
}

// WithinTx executes fn atomically. The driver retries transient transaction
// errors itself; domain errors abort and roll back.
func (t *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}
