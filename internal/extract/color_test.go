package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/va-pc/buildscout/internal/model"
)

func TestCaseColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want model.CaseColor
	}{
		{
			name: "white russian",
			text: "Корпус: белый, с подсветкой",
			want: model.ColorWhite,
		},
		{
			name: "white prepositional case",
			text: "Сборка в белом корпусе\nКорпус: в белом цвете",
			want: model.ColorWhite,
		},
		{
			name: "black russian",
			text: "Корпус: черный Zalman",
			want: model.ColorBlack,
		},
		{
			name: "black with io letter",
			text: "Корпус: чёрный",
			want: model.ColorBlack,
		},
		{
			name: "english tokens",
			text: "Корпус: DEEPCOOL CH510 White",
			want: model.ColorWhite,
		},
		{
			name: "short code bk",
			text: "Корпус: Zalman i3 Neo BK",
			want: model.ColorBlack,
		},
		{
			name: "white wins when both present",
			text: "Корпус: белый с черными вставками",
			want: model.ColorWhite,
		},
		{
			name: "label without indicator",
			text: "Корпус: Cougar MX330",
			want: model.ColorNone,
		},
		{
			name: "no case label",
			text: "Просто игровой ПК, белый стол в комплект не входит",
			want: model.ColorNone,
		},
		{
			name: "indicator outside labeled segment ignored",
			text: "Белый свет в комнате\nКорпус: Cougar",
			want: model.ColorNone,
		},
		{
			name: "empty text",
			text: "",
			want: model.ColorNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CaseColor(tt.text))
		})
	}
}

func TestScenario_FullListingText(t *testing.T) {
	t.Parallel()

	text := "Процессор: Intel Core Ultra 7 155H, Видеокарта: RTX 4060, 2x8GB DDR5, Корпус: белый"

	assert.Equal(t, "U7 155H", CPU(text))
	assert.Equal(t, "RTX 4060", GPU(text))
	assert.Equal(t, "16", RAM(text))
	assert.Equal(t, model.ColorWhite, CaseColor(text))
}
