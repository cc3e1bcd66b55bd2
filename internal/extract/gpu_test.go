package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGPU(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "labeled rtx with brand",
			text: "Видеокарта: NVIDIA GeForce RTX 4060",
			want: "RTX 4060",
		},
		{
			name: "rtx ti suffix",
			text: "Видеокарта: RTX 4070 Ti, 12GB",
			want: "RTX 4070 TI",
		},
		{
			name: "rtx super suffix",
			text: "GeForce RTX 4080 SUPER",
			want: "RTX 4080 SUPER",
		},
		{
			name: "gtx three digits",
			text: "Видеокарта GTX 1660 Ti",
			want: "GTX 1660 TI",
		},
		{
			name: "radeon rx xt",
			text: "Видеокарта: AMD Radeon RX 6700 XT",
			want: "RX 6700 XT",
		},
		{
			name: "radeon bare model",
			text: "AMD Radeon 6750 XT в сборке",
			want: "6750 XT",
		},
		{
			name: "intel arc",
			text: "Видеокарта: Intel ARC A770",
			want: "ARC A770",
		},
		{
			name: "global phase when label missing",
			text: "Игровой ПК с RTX 3060 и SSD 500GB",
			want: "RTX 3060",
		},
		{
			name: "no gpu",
			text: "Процессор: i5-12400F, 16GB RAM",
			want: "",
		},
		{
			name: "empty text",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GPU(tt.text))
		})
	}
}

func TestNormalizeGPU(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "RTX 4060", NormalizeGPU("NVIDIA GeForce RTX 4060"))
	assert.Equal(t, "RX 7800 XT", NormalizeGPU("AMD Radeon RX 7800 XT"))
	assert.Equal(t, "RTX 4060", NormalizeGPU("RTX 4060"))
}
