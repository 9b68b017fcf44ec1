package redeploy

import (
	"strconv"
	"strings"

	"github.com/yurykabanov/aci-redeployer/pkg/domain"
	"github.com/yurykabanov/aci-redeployer/pkg/settings"
)

// ForwardedKeys splits the comma separated key list. Unlike a plain strings.Split,
// blank entries are skipped and surrounding whitespace is dropped, so "A, B,," yields
// [A B] and never an empty variable name.
func ForwardedKeys(list string) []string {
	var keys []string

	for _, key := range strings.Split(list, ",") {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		keys = append(keys, key)
	}

	return keys
}

// BuildEnvironment maps every key named by HUBOT_ENV_KEYS to its configured value and
// sets TIMESTAMP last, so a forwarded key of the same name never survives.
func BuildEnvironment(config settings.Source, timestamp int64) map[string]string {
	keys := ForwardedKeys(config.GetString(settings.KeyEnvKeys))

	env := make(map[string]string, len(keys)+1)
	for _, key := range keys {
		env[key] = config.GetString(key)
	}

	env[domain.TimestampEnvKey] = strconv.FormatInt(timestamp, 10)

	return env
}
