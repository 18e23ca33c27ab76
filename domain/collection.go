package domain

// Collection names one of the synchronized record sets. The value doubles as the
// local table name and the remote table name.
type Collection string

const (
	CollectionTransactions Collection = "transactions"
	CollectionCrops        Collection = "crops"
	CollectionProperties   Collection = "properties"
)

// InitializedFlag is the persisted flag that gates seeding on first launch.
const InitializedFlag = "agroflow-initialized"

// Collections lists every synchronized collection in a stable order.
var Collections = []Collection{
	CollectionTransactions,
	CollectionCrops,
	CollectionProperties,
}

func (c Collection) Valid() bool {
	switch c {
	case CollectionTransactions, CollectionCrops, CollectionProperties:
		return true
	}
	return false
}

func (c Collection) String() string {
	return string(c)
}

// ParseCollection validates a collection name coming from an outer surface.
func ParseCollection(name string) (Collection, error) {
	c := Collection(name)
	if !c.Valid() {
		return "", WrapError(ErrCodeInvalid, "unknown collection "+name, ErrUnknownCollection)
	}
	return c, nil
}

// Document is a record snapshot as the local store sees it: an id and the
// record's JSON body.
type Document struct {
	ID   string
	Body []byte
}
