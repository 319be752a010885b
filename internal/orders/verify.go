package orders

import (
	"encoding/json"
	"strings"

	"github.com/JaimeStill/intake/internal/workflow"
)

// Check compares a stored order record and the blob found at path against
// the reference the caller holds. data is nil when no blob exists at path.
func Check(record *Order, orderID, path string, data []byte) workflow.Verification {
	if record == nil {
		return mismatch("no order record for " + orderID)
	}
	if strings.TrimPrefix(path, "/") != record.StorageKey {
		return mismatch("path " + path + " does not match stored key " + record.StorageKey)
	}
	if data == nil {
		return mismatch("no document at " + path)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return mismatch("document at " + path + " is not valid JSON")
	}
	if doc.OrderID != orderID {
		return mismatch("document order id " + doc.OrderID + " does not match " + orderID)
	}
	if Digest(doc.Order) != record.Digest {
		return mismatch("document content differs from stored digest")
	}

	return workflow.Verification{Matches: true}
}

func mismatch(details string) workflow.Verification {
	return workflow.Verification{Matches: false, Details: details}
}
