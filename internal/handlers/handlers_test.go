package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yadbot/yadbot/internal/contextkeys"
	"github.com/yadbot/yadbot/internal/i18n"
	"github.com/yadbot/yadbot/types"
)

func TestLangForPrefersProfileLocale(t *testing.T) {
	ctx := contextkeys.WithLang(context.Background(), "en")
	assert.Equal(t, i18n.FA, langFor(ctx, &types.User{Locale: "fa"}))
}

func TestLangForFallsBackToContextThenFarsi(t *testing.T) {
	ctx := contextkeys.WithLang(context.Background(), "en")
	assert.Equal(t, i18n.EN, langFor(ctx, nil))
	assert.Equal(t, i18n.EN, langFor(ctx, &types.User{}))

	// No profile and no tagged language defaults to Farsi.
	assert.Equal(t, i18n.FA, langFor(context.Background(), nil))
}
