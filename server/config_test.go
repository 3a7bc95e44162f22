package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ParseDBConnString(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    Database
		expectErr bool
	}{
		{name: "inmem", input: "inmem", expect: Database{Type: DatabaseInMemory}},
		{name: "inmem upper", input: "INMEM", expect: Database{Type: DatabaseInMemory}},
		{name: "sqlite", input: "sqlite:/data/skein", expect: Database{Type: DatabaseSQLite, DataDir: "/data/skein"}},
		{name: "sqlite without dir", input: "sqlite", expectErr: true},
		{name: "inmem with params", input: "inmem:foo", expectErr: true},
		{name: "none", input: "none", expectErr: true},
		{name: "unknown", input: "postgres:x", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := ParseDBConnString(tc.input)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)

			// and it goes back the same way
			again, err := ParseDBConnString(actual.String())
			assert.NoError(err)
			assert.Equal(actual, again)
		})
	}
}

func Test_ParseConfig(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    Config
		expectErr bool
	}{
		{
			name:   "empty",
			input:  ``,
			expect: Config{},
		},
		{
			name: "all keys",
			input: `listen = ":9000"
token_secret = "abcdefghijklmnopqrstuvwxyz0123456789"
database = "sqlite:data"
unauth_delay_ms = -1
`,
			expect: Config{
				ListenAddress:     ":9000",
				TokenSecret:       []byte("abcdefghijklmnopqrstuvwxyz0123456789"),
				DB:                Database{Type: DatabaseSQLite, DataDir: "data"},
				UnauthDelayMillis: -1,
			},
		},
		{
			name:      "unknown key",
			input:     `port = 8080`,
			expectErr: true,
		},
		{
			name:      "bad database",
			input:     `database = "mysql"`,
			expectErr: true,
		},
		{
			name:      "not toml",
			input:     `listen = `,
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := ParseConfig([]byte(tc.input))
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_SplitListenAddress(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		expectHost string
		expectPort int
		expectErr  bool
	}{
		{name: "full", input: "192.168.0.2:6001", expectHost: "192.168.0.2", expectPort: 6001},
		{name: "port only", input: ":6001", expectHost: "localhost", expectPort: 6001},
		{name: "no port", input: "localhost", expectErr: true},
		{name: "bad port", input: ":http", expectErr: true},
		{name: "port out of range", input: ":70000", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			host, port, err := SplitListenAddress(tc.input)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expectHost, host)
			assert.Equal(tc.expectPort, port)
		})
	}
}

func Test_Config_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       Config
		expectErr bool
	}{
		{name: "defaults", cfg: Config{}.FillDefaults()},
		{name: "short secret", cfg: Config{TokenSecret: []byte("short")}.FillDefaults(), expectErr: true},
		{name: "long secret", cfg: Config{TokenSecret: make([]byte, 65)}.FillDefaults(), expectErr: true},
		{name: "bad listen", cfg: Config{ListenAddress: "nowhere"}.FillDefaults(), expectErr: true},
		{name: "sqlite without dir", cfg: Config{DB: Database{Type: DatabaseSQLite}}.FillDefaults(), expectErr: true},
		{name: "unfilled", cfg: Config{}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
