package domain

// Operation names used for idempotency keys, metrics and logs.
const (
	OperationTransfer = "transfer"
	OperationMint     = "mint"
)

// BuildIdempotencyKey scopes a client-supplied key to its caller and operation.
// Format: "<caller hex>:<operation>:<key>".
func BuildIdempotencyKey(caller AccountID, operation, key string) string {
	return caller.String() + ":" + operation + ":" + key
}
