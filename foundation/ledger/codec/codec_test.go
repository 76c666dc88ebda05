package codec_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/veralabs/ledger/foundation/ledger/codec"
)

func Test_Scalars(t *testing.T) {
	blob, err := codec.Marshal("hello world")
	if err != nil {
		t.Fatalf("Should be able to encode a string: %s", err)
	}
	if blob != "string:hello world" {
		t.Fatalf("Should get the tagged form, got %q.", blob)
	}

	var s string
	if err := codec.Into(blob, codec.KindString, &s); err != nil {
		t.Fatalf("Should be able to decode a string: %s", err)
	}
	if s != "hello world" {
		t.Fatalf("Should round trip the string, got %q.", s)
	}

	blob, err = codec.Marshal(big.NewInt(-42))
	if err != nil {
		t.Fatalf("Should be able to encode a big integer: %s", err)
	}
	if blob != "bigint:-42" {
		t.Fatalf("Should get the tagged form, got %q.", blob)
	}

	value, kind, err := codec.Unmarshal(blob)
	if err != nil {
		t.Fatalf("Should be able to decode a big integer: %s", err)
	}
	if kind != codec.KindBigInt {
		t.Fatalf("Should report the bigint kind, got %q.", kind)
	}
	if value.(*big.Int).Cmp(big.NewInt(-42)) != 0 {
		t.Fatalf("Should round trip the big integer, got %s.", value)
	}
}

func Test_Objects(t *testing.T) {
	type inner struct {
		Amount *big.Int `json:"amount"`
	}
	type object struct {
		Name  string   `json:"name"`
		Count int      `json:"count"`
		Items []inner  `json:"items"`
		Total *big.Int `json:"total"`
	}

	in := object{
		Name:  "ledger",
		Count: 3,
		Items: []inner{{Amount: big.NewInt(7)}},
		Total: big.NewInt(21),
	}

	blob1, err := codec.Marshal(in)
	if err != nil {
		t.Fatalf("Should be able to encode an object: %s", err)
	}

	blob2, err := codec.Marshal(in)
	if err != nil {
		t.Fatalf("Should be able to encode the object again: %s", err)
	}

	if blob1 != blob2 {
		t.Logf("got: %s", blob2)
		t.Logf("exp: %s", blob1)
		t.Fatalf("Should encode the same value identically every time.")
	}

	var out object
	if err := codec.Into(blob1, codec.KindObject, &out); err != nil {
		t.Fatalf("Should be able to decode the object: %s", err)
	}

	if out.Name != in.Name || out.Count != in.Count || out.Total.Cmp(in.Total) != 0 {
		t.Fatalf("Should round trip the object, got %+v.", out)
	}
	if len(out.Items) != 1 || out.Items[0].Amount.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("Should round trip the nested items, got %+v.", out.Items)
	}
}

func Test_Rejections(t *testing.T) {
	if _, err := codec.Marshal(3.14); !errors.Is(err, codec.ErrUnsupportedType) {
		t.Fatalf("Should reject a float, got %v.", err)
	}

	type withFloat struct {
		Ratio float64
	}
	if _, err := codec.Marshal(withFloat{Ratio: 0.5}); !errors.Is(err, codec.ErrUnsupportedType) {
		t.Fatalf("Should reject a struct carrying a float, got %v.", err)
	}

	if _, err := codec.Marshal(map[int]string{1: "x"}); !errors.Is(err, codec.ErrUnsupportedType) {
		t.Fatalf("Should reject a map with non string keys, got %v.", err)
	}

	if _, _, err := codec.Unmarshal("no tag here"); !errors.Is(err, codec.ErrBadEncoding) {
		t.Fatalf("Should reject a blob without a type tag, got %v.", err)
	}

	if _, _, err := codec.Unmarshal("bigint:xyz"); !errors.Is(err, codec.ErrBadEncoding) {
		t.Fatalf("Should reject a malformed big integer, got %v.", err)
	}

	var s string
	if err := codec.Into("bigint:42", codec.KindString, &s); !errors.Is(err, codec.ErrWrongKind) {
		t.Fatalf("Should reject a kind mismatch, got %v.", err)
	}
}
