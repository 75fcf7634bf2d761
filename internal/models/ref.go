package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ref points at another document. Depending on the query path it holds
// only the id or the id plus the expanded document.
type Ref[T any] struct {
	ID       primitive.ObjectID
	Expanded *T
}

func NewRef[T any](id primitive.ObjectID) Ref[T] {
	return Ref[T]{ID: id}
}

func ExpandedRef[T any](id primitive.ObjectID, v *T) Ref[T] {
	return Ref[T]{ID: id, Expanded: v}
}

// Hex is the canonical string form of the referenced id.
func (r Ref[T]) Hex() string {
	return r.ID.Hex()
}

func (r Ref[T]) IsExpanded() bool {
	return r.Expanded != nil
}

// MarshalBSONValue always stores the bare id.
func (r Ref[T]) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(r.ID)
}

func (r *Ref[T]) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.ObjectID:
		*r = Ref[T]{ID: raw.ObjectID()}
		return nil
	case bsontype.EmbeddedDocument:
		doc := raw.Document()
		id, ok := doc.Lookup("_id").ObjectIDOK()
		if !ok {
			return fmt.Errorf("expanded reference has no _id")
		}
		var v T
		if err := bson.Unmarshal(doc, &v); err != nil {
			return fmt.Errorf("error decoding expanded reference: %w", err)
		}
		*r = Ref[T]{ID: id, Expanded: &v}
		return nil
	case bsontype.Null, bsontype.Undefined:
		*r = Ref[T]{}
		return nil
	default:
		return fmt.Errorf("cannot decode %s into a reference", t)
	}
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.Expanded != nil {
		return json.Marshal(r.Expanded)
	}
	if r.ID.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID.Hex())
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	var hex string
	if err := json.Unmarshal(data, &hex); err != nil {
		return fmt.Errorf("reference must be an id string: %w", err)
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return fmt.Errorf("invalid reference id %q: %w", hex, err)
	}
	*r = Ref[T]{ID: id}
	return nil
}
