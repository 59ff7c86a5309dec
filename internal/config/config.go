package config

import (
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	IsDebug       bool   `yaml:"is_debug" env-default:"false"`
	TimeZone      string `yaml:"time_zone" env-default:"UTC"`
	CentralSystem struct {
		Url string `yaml:"url" env:"CS_URL" env-default:"ws://localhost:5000/ws"`
	} `yaml:"central_system"`
	Api struct {
		Enabled  bool   `yaml:"enabled" env-default:"true"`
		BindIP   string `yaml:"bind_ip" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env-default:"5100"`
		TLS      bool   `yaml:"tls_enabled" env-default:"false"`
		CertFile string `yaml:"cert_file" env-default:""`
		KeyFile  string `yaml:"key_file" env-default:""`
	} `yaml:"api"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		BindIP  string `yaml:"bind_ip" env-default:"0.0.0.0"`
		Port    string `yaml:"port" env-default:"5200"`
	} `yaml:"metrics"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"localhost"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:""`
		Password string `yaml:"password" env-default:""`
		Database string `yaml:"database" env-default:"stationsim"`
	} `yaml:"mongo"`
	Telegram struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	} `yaml:"telegram"`
	Stations []Station `yaml:"stations"`
}

type Station struct {
	Id                   string   `yaml:"id"`
	Vendor               string   `yaml:"vendor" env-default:"stationsim"`
	Model                string   `yaml:"model" env-default:"virtual-cp"`
	Connectors           int      `yaml:"connectors" env-default:"2"`
	StrictCompliance     bool     `yaml:"ocpp_strict_compliance" env-default:"true"`
	AuthorizeRemoteTx    bool     `yaml:"authorize_remote_tx_requests" env-default:"false"`
	ReserveConnectorZero bool     `yaml:"reserve_connector_zero" env-default:"false"`
	LocalAuthTags        []string `yaml:"local_auth_tags"`
	FeatureProfiles      []string `yaml:"feature_profiles"`
	HeartbeatInterval    int      `yaml:"heartbeat_interval" env-default:"600"`
	ResetTime            int      `yaml:"reset_time" env-default:"30"`
	LogDir               string   `yaml:"log_dir" env-default:"."`
	Firmware             Firmware `yaml:"firmware"`
}

type Firmware struct {
	// FailureStatus injects a simulated failure: DownloadFailed or InstallationFailed.
	FailureStatus string `yaml:"failure_status" env-default:""`
	Reset         bool   `yaml:"reset" env-default:"true"`
	MinDelay      int    `yaml:"min_delay" env-default:"15"`
	MaxDelay      int    `yaml:"max_delay" env-default:"30"`
}

var instance *Config
var once sync.Once

func GetConfig() (*Config, error) {
	var err error
	once.Do(func() {
		log.Println("reading config")
		instance = &Config{}
		if err = cleanenv.ReadConfig("config.yml", instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			log.Println(desc)
			log.Println(err)
			instance = nil
		}
	})
	return instance, err
}
