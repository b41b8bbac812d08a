package listing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

func TestQRDecoratorRendersBlocks(t *testing.T) {
	q := QRDecorator{Prefix: "profile:"}
	out, err := q.Render(entity.Profile{ID: "4f6c7a2e-5b1d-4c8e-9a3f-0d2b6e7c1a90"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "\n")

	other, err := q.Render(entity.Profile{ID: "another"})
	require.NoError(t, err)
	assert.NotEqual(t, out, other)
}

func TestQRDecoratorRequiresID(t *testing.T) {
	_, err := QRDecorator{}.Render(entity.Profile{})
	assert.Error(t, err)
}

func TestBuildDetailWithQR(t *testing.T) {
	d := BuildDetail(entity.Profile{ID: "abc"}, nil, QRDecorator{})
	require.Len(t, d.Sections, 1)
	assert.Equal(t, "Profile QR", d.Sections[0].Title)
	assert.Len(t, d.Lines, 5)
}
