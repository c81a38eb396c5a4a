package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Spok95/metalqms/internal/domain/requirements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", c.App.Storage)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.True(t, c.QC.AutoCreate)
	assert.Equal(t, 5*time.Second, c.Notifications.Interval)
	assert.Equal(t, time.Hour, c.Dispatcher().MaxBackoff)

	tbl, err := c.RuleTable()
	require.NoError(t, err)
	assert.Equal(t, requirements.DefaultTable(), tbl)
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("APP_POSTGRES_DSN", "postgres://env")
	t.Setenv("APP_NOTIFICATIONS_MAX_ATTEMPTS", "3")

	path := writeFile(t, `
app:
  storage: memory
  timezone: Asia/Yekaterinburg
telegram:
  admin_chat_id: 42
postgres:
  dsn: postgres://file
notifications:
  base_backoff: 30s
rules:
  ultrasonic:
    - kind: round
      min_mm: 60
      max_mm: 120
      grades: ["40X"]
  ppsd:
    grades: ["20X13"]
`)
	c, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "memory", c.App.Storage)
	assert.Equal(t, int64(42), c.Telegram.AdminChatID)
	assert.Equal(t, "postgres://env", c.Postgres.DSN)
	assert.Equal(t, 3, c.Notifications.MaxAttempts)
	assert.Equal(t, 30*time.Second, c.Notifications.BaseBackoff)
	assert.Equal(t, "Asia/Yekaterinburg", c.Location().String())

	tbl, err := c.RuleTable()
	require.NoError(t, err)
	require.Len(t, tbl.Ultrasonic, 1)
	assert.Equal(t, requirements.KindRound, tbl.Ultrasonic[0].Kind)
	assert.Equal(t, 60.0, tbl.Ultrasonic[0].MinMM)
	assert.Equal(t, []string{"20X13"}, tbl.Ppsd.Grades)
}

func TestRuleTable_SectionDefaults(t *testing.T) {
	def := requirements.DefaultTable()

	path := writeFile(t, `
rules:
  ultrasonic:
    - kind: sheet
      min_mm: 10
      max_mm: 40
      all_grades: true
`)
	c, err := Load(New(), path)
	require.NoError(t, err)
	tbl, err := c.RuleTable()
	require.NoError(t, err)
	require.Len(t, tbl.Ultrasonic, 1)
	assert.Equal(t, def.Ppsd, tbl.Ppsd, "ppsd section not set, built-in rule applies")

	path = writeFile(t, `
rules:
  ppsd:
    min_chromium_pct: 13
`)
	c, err = Load(New(), path)
	require.NoError(t, err)
	tbl, err = c.RuleTable()
	require.NoError(t, err)
	assert.Equal(t, def.Ultrasonic, tbl.Ultrasonic)
	assert.Empty(t, tbl.Ppsd.Grades)
	assert.Equal(t, 13.0, tbl.Ppsd.MinChromiumPct)
}

func TestLoad_BadRules(t *testing.T) {
	path := writeFile(t, `
rules:
  ultrasonic:
    - kind: hex
      min_mm: 10
      max_mm: 5
`)
	_, err := Load(New(), path)
	assert.ErrorIs(t, err, requirements.ErrInvalidTable)
}

func TestLoad_BadStorage(t *testing.T) {
	t.Setenv("APP_APP_STORAGE", "sqlite")
	_, err := Load(New(), "")
	assert.ErrorContains(t, err, "app.storage")
}

func TestLocation_Fallback(t *testing.T) {
	var c Config
	assert.Equal(t, time.UTC, c.Location())
	c.App.Timezone = "Nowhere/City"
	assert.Equal(t, time.UTC, c.Location())
}
