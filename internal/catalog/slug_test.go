package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Classic Set", "classic-set"},
		{"  Постельное бельё  Евро ", "postelnoe-bele-evro"},
		{"Красный", "krasnyy"},
		{"Café Crème 200x220", "cafe-creme-200x220"},
		{"---", ""},
		{"Щётка/Ёж", "shchetka-ezh"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSKUSegment(t *testing.T) {
	assert.Equal(t, "SVETLO-SERYY", SKUSegment("светло-серый"))
	assert.Equal(t, "XL", SKUSegment("xl"))
}

func TestVisibilityValid(t *testing.T) {
	assert.True(t, VisibilityVisible.Valid())
	assert.True(t, VisibilityHidden.Valid())
	assert.False(t, Visibility("visible").Valid())
}
