// Package orders implements the sales order domain: validation of
// classifier-extracted fields, persistence to Postgres and blob storage
// keyed by run, and read-only verification of stored orders.
package orders

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/JaimeStill/intake/internal/workflow"
)

// Item is one order line.
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Fields is the validated order content extracted from an email thread.
type Fields struct {
	Items        []Item `json:"items"`
	CustomerName string `json:"customer_name"`
	Address      string `json:"address"`
	Email        string `json:"email"`
}

// Order is a stored order record.
type Order struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	StorageKey string    `json:"storage_key"`
	Path       string    `json:"path"`
	Digest     string    `json:"digest"`
	Fields     Fields    `json:"fields"`
	CreatedAt  time.Time `json:"created_at"`
}

// Document is the JSON body written to blob storage.
type Document struct {
	OrderID   string    `json:"order_id"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Order     Fields    `json:"order"`
}

type rawItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

type rawFields struct {
	Items        []rawItem `json:"items"`
	Item         []rawItem `json:"item"`
	CustomerName string    `json:"customer_name"`
	Address      string    `json:"address"`
	Email        string    `json:"email"`
}

// FromFields validates classifier output and converts it to Fields. The
// legacy "item" key is accepted for "items". Every problem is reported in a
// single error wrapping workflow.ErrValidation.
func FromFields(fields map[string]any) (Fields, error) {
	if len(fields) == 0 {
		return Fields{}, fmt.Errorf("%w: no order fields extracted", workflow.ErrValidation)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return Fields{}, fmt.Errorf("%w: %w", workflow.ErrValidation, err)
	}

	var raw rawFields
	if err := json.Unmarshal(data, &raw); err != nil {
		return Fields{}, fmt.Errorf("%w: %w", workflow.ErrValidation, err)
	}

	items := raw.Items
	if len(items) == 0 {
		items = raw.Item
	}

	var problems []string
	f := Fields{
		CustomerName: strings.TrimSpace(raw.CustomerName),
		Address:      strings.TrimSpace(raw.Address),
		Email:        strings.TrimSpace(raw.Email),
	}

	if len(items) == 0 {
		problems = append(problems, "items is required")
	}
	for i, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("items[%d].name is required", i))
		}
		if it.Quantity <= 0 || it.Quantity != math.Trunc(it.Quantity) || it.Quantity > math.MaxInt32 {
			problems = append(problems, fmt.Sprintf("items[%d].quantity must be a positive integer", i))
		}
		f.Items = append(f.Items, Item{Name: name, Quantity: int(it.Quantity)})
	}

	if f.CustomerName == "" {
		problems = append(problems, "customer_name is required")
	}
	if f.Address == "" {
		problems = append(problems, "address is required")
	}
	if !strings.Contains(f.Email, "@") {
		problems = append(problems, "email must contain @")
	}

	if len(problems) > 0 {
		return Fields{}, fmt.Errorf("%w: %s", workflow.ErrValidation, strings.Join(problems, "; "))
	}
	return f, nil
}

// Digest returns the hex SHA-256 of the canonical JSON encoding of f.
func Digest(f Fields) string {
	data, _ := json.Marshal(f)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NewID returns an order identifier of the form ORD- followed by 16
// upper-case hex characters (64 random bits).
func NewID() string {
	var b [8]byte
	rand.Read(b[:])
	return "ORD-" + strings.ToUpper(hex.EncodeToString(b[:]))
}

// Key returns the blob key for an order.
func Key(orderID string) string {
	return "orders/" + orderID + ".json"
}

// Path returns the externally reported path for a blob key.
func Path(key string) string {
	return "/" + key
}
