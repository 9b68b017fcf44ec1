package bootstrap

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigVerbose   = "verbose"
	ConfigFile      = "config"
	ConfigEnvFile   = "env-file"
	ConfigLogLevel  = "log.level"
	ConfigLogFormat = "log.format"

	ConfigServerAddress         = "server.address"
	ConfigServerTimeoutRead     = "server.timeout.read"
	ConfigServerTimeoutWrite    = "server.timeout.write"
	ConfigServerShutdownTimeout = "server.shutdown.timeout"
	ConfigServerLogRequests     = "server.log.requests"

	ConfigWebhookRoute = "webhook.route"
	ConfigWebhookKey   = "webhook.key"
	ConfigWebhookMode  = "webhook.mode"

	ConfigQueueDriver         = "queue.driver"
	ConfigQueueName           = "queue.name"
	ConfigQueueMemorySize     = "queue.memory.size"
	ConfigQueueNatsUrl        = "queue.nats.url"
	ConfigQueueNatsStream     = "queue.nats.stream"
	ConfigQueueNatsDurable    = "queue.nats.durable"
	ConfigQueueNatsMaxDeliver = "queue.nats.max_deliver"
	ConfigQueueNatsAckWait    = "queue.nats.ack_wait"

	ConfigProviderKind = "provider.kind"

	ConfigTargetResourceGroup  = "target.resource_group"
	ConfigTargetContainerGroup = "target.container_group"
	ConfigTargetImage          = "target.image"

	ConfigSettingsFile = "settings.file"

	ConfigInfisicalSiteUrl      = "secrets.infisical.site_url"
	ConfigInfisicalClientId     = "secrets.infisical.client_id"
	ConfigInfisicalClientSecret = "secrets.infisical.client_secret"
	ConfigInfisicalProjectId    = "secrets.infisical.project_id"
	ConfigInfisicalEnvironment  = "secrets.infisical.environment"
	ConfigInfisicalPath         = "secrets.infisical.path"
)

const (
	WebhookModeQueue  = "queue"
	WebhookModeDirect = "direct"

	QueueDriverNats   = "nats"
	QueueDriverMemory = "memory"

	ProviderAzure  = "azure"
	ProviderDocker = "docker"
)

// ServerFlags registers the flags only the webhook receiver needs.
func ServerFlags(fs *pflag.FlagSet) {
	fs.String(ConfigServerAddress, "0.0.0.0:8000", "HTTP server bind address")
	fs.Duration(ConfigServerTimeoutRead, 5*time.Second, "HTTP server read timeout")
	fs.Duration(ConfigServerTimeoutWrite, 10*time.Minute, "HTTP server write timeout (covers direct mode redeploys)")
	fs.Duration(ConfigServerShutdownTimeout, 30*time.Second, "HTTP server graceful shutdown timeout")
	fs.Bool(ConfigServerLogRequests, true, "HTTP server request logging")

	fs.String(ConfigWebhookRoute, "/api/DockerHubWebhook", "Webhook route")
	fs.String(ConfigWebhookKey, "", "Access key required in the 'code' query parameter or x-functions-key header (empty disables)")
	fs.String(ConfigWebhookMode, WebhookModeQueue, "Webhook mode: queue or direct")
	fs.Int(ConfigQueueMemorySize, 16, "Capacity of the in-process queue")
}

func commonFlags(fs *pflag.FlagSet) {
	// Verbose is a shortcut for `log.level = debug`
	fs.BoolP(ConfigVerbose, "v", false, "Shortcut for verbose logs (debug level)")

	fs.StringP(ConfigFile, "c", "", "Config file")
	fs.String(ConfigEnvFile, ".env", "Dotenv file loaded into the environment if present")

	fs.String(ConfigLogLevel, "info", "Log level")
	fs.String(ConfigLogFormat, "json", "Log output format")

	fs.String(ConfigQueueDriver, QueueDriverNats, "Queue driver: nats or memory")
	fs.String(ConfigQueueName, "update-donkeybot-jobs", "Queue (subject) carrying redeploy signals")
	fs.String(ConfigQueueNatsUrl, "nats://127.0.0.1:4222", "NATS server URL")
	fs.String(ConfigQueueNatsStream, "UPDATE_DONKEYBOT_JOBS", "JetStream stream name")
	fs.String(ConfigQueueNatsDurable, "UpdateDonkeybotJob", "JetStream durable consumer name")
	fs.Int(ConfigQueueNatsMaxDeliver, 5, "Deliveries per message before the server gives up")
	fs.Duration(ConfigQueueNatsAckWait, 10*time.Minute, "Time a redeploy may take before the message is redelivered")

	fs.String(ConfigProviderKind, ProviderAzure, "Container provider: azure or docker")

	fs.String(ConfigTargetResourceGroup, "Donkeybot", "Resource group holding the container group")
	fs.String(ConfigTargetContainerGroup, "donkeybot", "Container group to recreate")
	fs.String(ConfigTargetImage, "perrym5/donkeybot", "Image to run")

	fs.String(ConfigSettingsFile, "", "Settings file re-read on every redeploy (e.g. local.settings.json)")

	fs.String(ConfigInfisicalSiteUrl, "", "Infisical URL")
	fs.String(ConfigInfisicalClientId, "", "Infisical machine identity client id (empty disables infisical)")
	fs.String(ConfigInfisicalClientSecret, "", "Infisical machine identity client secret")
	fs.String(ConfigInfisicalProjectId, "", "Infisical project id")
	fs.String(ConfigInfisicalEnvironment, "prod", "Infisical environment slug")
	fs.String(ConfigInfisicalPath, "/", "Infisical secret path")
}

// LoadConfiguration reads flags, the dotenv file, environment (REDEPLOYER_ prefix) and
// the config file into the global viper instance.
func LoadConfiguration(extraFlags ...func(fs *pflag.FlagSet)) {
	commonFlags(pflag.CommandLine)
	for _, f := range extraFlags {
		f(pflag.CommandLine)
	}

	pflag.Parse()

	// NOTE: we don't have logger configured yet as we haven't read all sources of configuration
	// so we're using default logrus logger as fallback
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		logrus.WithError(err).Fatal("Couldn't bind flags")
	}

	// Existing environment variables win over the dotenv file
	if envFile := viper.GetString(ConfigEnvFile); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			logrus.WithError(err).Debug("Couldn't read dotenv file")
		}
	}

	viper.SetEnvPrefix("redeployer")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if configFile := viper.GetString(ConfigFile); configFile != "" {
		// If user do specify config file, then this file MUST exist and be valid
		viper.SetConfigFile(configFile)

		if err := viper.ReadInConfig(); err != nil {
			logrus.WithError(err).Fatal("Couldn't read config file")
		}
	} else {
		viper.SetConfigName("redeployer")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/aci-redeployer")

		if err := viper.ReadInConfig(); err != nil {
			logrus.WithError(err).Warn("Couldn't read config file")
		}
	}
}
