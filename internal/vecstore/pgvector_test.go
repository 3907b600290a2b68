package vecstore

import "testing"

func TestToVectorLiteral(t *testing.T) {
	lit, err := toVectorLiteral([]float32{0.5, -1, 0.25}, 3)
	if err != nil {
		t.Fatalf("toVectorLiteral: %v", err)
	}
	if lit != "[0.5,-1,0.25]" {
		t.Errorf("literal = %q", lit)
	}
}

func TestToVectorLiteral_DimensionMismatch(t *testing.T) {
	if _, err := toVectorLiteral([]float32{1, 2}, 3); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestToVectorLiteral_Empty(t *testing.T) {
	if _, err := toVectorLiteral(nil, 3); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}
