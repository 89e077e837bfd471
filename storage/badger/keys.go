package badger

// Key prefixes for different data types
const (
	collectionPrefix = "doccol:"
	documentPrefix   = "docrec:"
)

// keySeparator ends the collection name inside document keys so that
// collection "a" never matches the documents of collection "ab".
const keySeparator = 0x00

// makeCollectionKey generates a key for a collection by name.
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + name)
}

// makeDocumentPrefix generates the key prefix shared by all documents of
// a collection.
// Format: prefix collection 0x00
func makeDocumentPrefix(collection string) []byte {
	buf := make([]byte, 0, len(documentPrefix)+len(collection)+1)
	buf = append(buf, documentPrefix...)
	buf = append(buf, collection...)
	return append(buf, keySeparator)
}

// makeDocumentKey generates a key for a document.
// Format: prefix collection 0x00 id
func makeDocumentKey(collection, id string) []byte {
	return append(makeDocumentPrefix(collection), id...)
}
