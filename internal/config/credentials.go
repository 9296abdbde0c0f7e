package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/joho/godotenv"
)

// ErrCredentials is returned when an os-credentials string is incomplete or malformed.
var ErrCredentials = errors.New("invalid os-credentials")

// Credentials are parsed from an os-credentials flag string.
type Credentials struct {
	AuthOptions gophercloud.AuthOptions
	Region      string
	AuthVersion int
}

var commonCredentialKeys = []string{"username", "password", "region_name", "auth_url", "credentials_project"}

// LoadEnvFile loads OS_* variables from a novarc-style file.
// Variables already set in the process environment are kept.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ParseFlags parses "key=value" pairs separated by commas or whitespace.
func ParseFlags(s string) (map[string]string, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	flags := make(map[string]string, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrCredentials, f)
		}
		flags[k] = v
	}
	return flags, nil
}

// ParseOSCredentials turns an os-credentials string into gophercloud auth options.
// Keystone v3 URLs additionally require a domain, used for both user and project.
func ParseOSCredentials(s string) (Credentials, error) {
	flags, err := ParseFlags(s)
	if err != nil {
		return Credentials{}, err
	}

	authURL, ok := flags["auth_url"]
	if !ok || authURL == "" {
		return Credentials{}, fmt.Errorf("%w: auth_url is missing", ErrCredentials)
	}
	authURL = strings.Trim(authURL, `"'`)

	keys := commonCredentialKeys
	version := 2
	if strings.Contains(authURL, "/v3") {
		keys = append(keys[:len(keys):len(keys)], "domain")
		version = 3
	}

	var missing []string
	for _, k := range keys {
		if _, ok := flags[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Credentials{}, fmt.Errorf("%w: missing %s", ErrCredentials, strings.Join(missing, ", "))
	}

	opts := gophercloud.AuthOptions{
		IdentityEndpoint: authURL,
		Username:         flags["username"],
		Password:         flags["password"],
		TenantName:       flags["credentials_project"],
	}
	if version == 3 {
		opts.DomainName = flags["domain"]
		opts.Scope = &gophercloud.AuthScope{
			ProjectName: flags["credentials_project"],
			DomainName:  flags["domain"],
		}
	}

	return Credentials{AuthOptions: opts, Region: flags["region_name"], AuthVersion: version}, nil
}
