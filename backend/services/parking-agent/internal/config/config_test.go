package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENV_FILE", "")

	// the default .envs is looked up in the working directory
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("BASE_URL", "https://api.example.com")
	t.Setenv("PREFEITURA_ID", "42")
	t.Setenv("CREDENCIAL", "12345678900")
	t.Setenv("SENHA", "s3cret")
	t.Setenv("CARTAO_IMEI", "356000000000000")
	t.Setenv("CARTAO_UUID", "4f1c2a9e-device")
	t.Setenv("CARTAO_NUMERO", "4111111111111111")
	t.Setenv("CARTAO_CVV", "123")
	t.Setenv("CARTAO_EXPIRACAO", "12/2030")
	t.Setenv("CARTAO_BANDEIRA", "VISA")
	t.Setenv("CARTAO_TITULAR", "JOAO DA SILVA")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.API.OrgID)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 6.0, cfg.Balance.Threshold)
	assert.Equal(t, 5.75, cfg.Balance.TopUp)
	threshold, topUp := cfg.Balance.Policy()
	assert.Equal(t, "6.00", threshold.StringFixed(2))
	assert.Equal(t, "5.75", topUp.String())
	assert.Equal(t, -24.04206, cfg.Parking.Latitude)
	assert.Equal(t, -52.37622, cfg.Parking.Longitude)
	assert.Equal(t, map[int]int{1: 85, 2: 89}, cfg.Parking.Rules)
	assert.Equal(t, "session.json", cfg.Session.File)
	assert.Equal(t, 10*time.Second, cfg.Telegram.Timeout)
	assert.False(t, cfg.UsesRedisSession())
	assert.False(t, cfg.HistoryEnabled())
}

func TestLoadRulesOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PARKING_RULES", "1:90, 3:101")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 90, 3: 101}, cfg.Parking.Rules)
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SENHA", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api")
}

func TestValidateRejectsBadCard(t *testing.T) {
	cfg := validConfig()
	cfg.Card.CVV = "12a"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveTopUp(t *testing.T) {
	cfg := validConfig()
	cfg.Balance.TopUp = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresSessionTarget(t *testing.T) {
	cfg := validConfig()
	cfg.Session.File = ""
	require.Error(t, cfg.Validate())

	cfg.Session.RedisAddr = "localhost:6379"
	require.NoError(t, cfg.Validate())
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules("1:85,2:89,")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 85, 2: 89}, rules)

	_, err = ParseRules("1=85")
	require.Error(t, err)

	_, err = ParseRules("car:85")
	require.Error(t, err)
}

func TestIdentityHeaders(t *testing.T) {
	cfg := validConfig()
	headers := cfg.IdentityHeaders()

	assert.Equal(t, "CPM", headers["Prefeitura-Sigla"])
	assert.Equal(t, "okhttp/3.12.12", headers["User-Agent"])
	assert.Equal(t, cfg.Device.IMEI, headers["Dispositivo-Imei"])
	assert.Equal(t, cfg.Device.UUID, headers["Dispositivo-Uuid"])
	assert.NotContains(t, headers, "Accept-Encoding")
}

func validConfig() *Config {
	cfg := Default()
	cfg.API.BaseURL = "https://api.example.com"
	cfg.API.OrgID = 42
	cfg.API.Credential = "12345678900"
	cfg.API.Password = "s3cret"
	cfg.Device = DeviceConfig{IMEI: "356000000000000", UUID: "device"}
	cfg.Card = CardConfig{Number: "4111111111111111", CVV: "123", Expiration: "12/2030", Brand: "VISA", Holder: "JOAO"}
	return cfg
}
