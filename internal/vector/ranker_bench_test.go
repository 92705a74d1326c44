package vector

import "testing"

func BenchmarkTopK(b *testing.B) {
	rows := make([][]float32, 1000)
	for i := range rows {
		rows[i] = make([]float32, 384)
		rows[i][0] = float32(i) / 1000
		rows[i][i%384] += 0.5
	}
	m, err := NewMatrix(rows)
	if err != nil {
		b.Fatal(err)
	}
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = TopK(query, m, 10)
	}
}

func BenchmarkCosineSimilarity(b *testing.B) {
	x := make([]float32, 1536)
	y := make([]float32, 1536)
	for i := range x {
		x[i] = float32(i%7) * 0.1
		y[i] = float32(i%5) * 0.2
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = CosineSimilarity(x, y)
	}
}
