package rewrite

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/frozenpine/ip4view"
)

const mappingSep = "=>"

// AddrMapping rewrites From into To, text form "10.0.0.1=>192.168.0.1".
type AddrMapping struct {
	From ip4view.IPv4Addr
	To   ip4view.IPv4Addr
}

// UnmarshalText unmarshal address mapping from text
func (m *AddrMapping) UnmarshalText(text []byte) error {
	from, to, found := strings.Cut(string(text), mappingSep)
	if !found {
		return errors.Errorf("address mapping %q missing %q", text, mappingSep)
	}

	var err error

	if m.From, err = ip4view.ParseIPv4Addr(strings.TrimSpace(from)); err != nil {
		return errors.Wrapf(err, "address mapping %q", text)
	}

	if m.To, err = ip4view.ParseIPv4Addr(strings.TrimSpace(to)); err != nil {
		return errors.Wrapf(err, "address mapping %q", text)
	}

	return nil
}

// MarshalText marshal address mapping to text
func (m AddrMapping) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m AddrMapping) String() string {
	buff := bytes.NewBufferString(m.From.String())
	buff.WriteString(mappingSep)
	buff.WriteString(m.To.String())
	return buff.String()
}

// Config rewrite rules applied to every header passing the stage.
type Config struct {
	// Validate rejects headers whose IHL or total length do not fit
	Validate bool `mapstructure:"validate"`
	// VerifyChecksum checks the received checksum before mutating
	VerifyChecksum bool `mapstructure:"verify_checksum"`
	// DropCorrupt rejects headers failing VerifyChecksum
	DropCorrupt bool `mapstructure:"drop_corrupt"`
	// DecrementTTL forwards like a router hop
	DecrementTTL bool `mapstructure:"decrement_ttl"`
	// MinTTL headers arriving with TTL <= MinTTL expire, a TTL of 1 always does
	MinTTL uint8 `mapstructure:"min_ttl"`
	// SNAT source address mappings
	SNAT []AddrMapping `mapstructure:"snat"`
	// DNAT destination address mappings
	DNAT []AddrMapping `mapstructure:"dnat"`
}

// DefaultConfig validates, verifies and decrements TTL without NAT.
func DefaultConfig() *Config {
	return &Config{
		Validate:       true,
		VerifyChecksum: true,
		DecrementTTL:   true,
	}
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("validate", def.Validate)
	v.SetDefault("verify_checksum", def.VerifyChecksum)
	v.SetDefault("drop_corrupt", def.DropCorrupt)
	v.SetDefault("decrement_ttl", def.DecrementTTL)
	v.SetDefault("min_ttl", def.MinTTL)
}

// LoadConfig reads rules from a yaml, toml or json file. Scalar settings can
// be overridden by IP4VIEW_ prefixed environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	dir := filepath.Dir(path)
	filename := filepath.Base(path)
	fileExt := filepath.Ext(filename)

	v.SetConfigName(strings.TrimSuffix(filename, fileExt))
	v.SetConfigType(strings.TrimPrefix(fileExt, "."))
	v.AddConfigPath(dir)

	v.SetEnvPrefix("IP4VIEW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read rewrite config %s", path)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, errors.Wrap(err, "decode rewrite config")
	}

	return &cfg, nil
}
