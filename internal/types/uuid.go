package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// Prefixes for k-sortable unique identifiers
const (
	UUID_PREFIX_TENANT           = "ten"
	UUID_PREFIX_CONTRACT         = "cont"
	UUID_PREFIX_CONTRACT_ITEM    = "citem"
	UUID_PREFIX_PRICE_ENTRY      = "price"
	UUID_PREFIX_PRICE_CHANGE     = "pchg"
	UUID_PREFIX_ADJUSTMENT_RULE  = "adj"
	UUID_PREFIX_DISCOUNT         = "disc"
	UUID_PREFIX_INVOICE          = "inv"
	UUID_PREFIX_INVOICE_LINE     = "invl"
	UUID_PREFIX_NUMBER_SCHEME    = "nsch"
	UUID_PREFIX_CUSTOMER         = "cust"
	UUID_PREFIX_PRODUCT          = "prod"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex inv_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortIDWithPrefix returns a short ID with a prefix.
// Total length is capped at 12 characters, e.g., `in_xYZ12A8Q`.
func GenerateShortIDWithPrefix(prefix string) string {
	once.Do(initializeSID)

	id, err := sidGenerator.Generate()
	if err != nil {
		return ""
	}
	id = strings.ReplaceAll(id, "-", "")

	availableLen := 12 - len(prefix)
	if availableLen <= 0 {
		return ""
	}

	if len(id) > availableLen {
		id = id[:availableLen]
	}

	return strings.ToUpper(fmt.Sprintf("%s%s", prefix, id))
}
