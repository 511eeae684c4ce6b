package config

import (
	"fmt"
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	Secret    string `yaml:"secret" json:"secret"`
	JwtExpire int    `yaml:"jwt_expire" json:"jwt_expire"` // hours
}

type DBConfig struct {
	Type     string `yaml:"type" json:"type"` // postgres | sqlite
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	User     string `yaml:"user" json:"user"`
	Passwd   string `yaml:"passwd" json:"passwd"`
	MaxConn  int    `yaml:"max_conn" json:"max_conn"`
	IdleConn int    `yaml:"idle_conn" json:"idle_conn"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type RedisConfig struct {
	Addr   string `yaml:"addr" json:"addr"`
	Passwd string `yaml:"passwd" json:"passwd"`
	DB     int    `yaml:"db" json:"db"`
}

type StorageConfig struct {
	Type      string `yaml:"type" json:"type"` // local | http | sftp
	PublicURL string `yaml:"public_url" json:"public_url"`
	MaxSizeMB int64  `yaml:"max_size_mb" json:"max_size_mb"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"` // http store
	Token     string `yaml:"token" json:"token"`       // http store
	SftpAddr  string `yaml:"sftp_addr" json:"sftp_addr"`
	SftpUser  string `yaml:"sftp_user" json:"sftp_user"`
	SftpPwd   string `yaml:"sftp_pwd" json:"sftp_pwd"`
	SftpDir   string `yaml:"sftp_dir" json:"sftp_dir"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"` // development | production
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system" json:"system"`
	Web      WebConfig     `yaml:"web" json:"web"`
	Database DBConfig      `yaml:"database" json:"database"`
	Redis    RedisConfig   `yaml:"redis" json:"redis"`
	Storage  StorageConfig `yaml:"storage" json:"storage"`
	Logger   LogConfig     `yaml:"logger" json:"logger"`
}

func (c *AppConfig) GetLogDir() string {
	return fmt.Sprintf("%s/logs", c.System.Workdir)
}

func (c *AppConfig) GetDataDir() string {
	return fmt.Sprintf("%s/data", c.System.Workdir)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "zestcart",
		Location: "Asia/Shanghai",
		Workdir:  "/var/zestcart",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1980,
		Secret:    "9b6de5cc-0731-1203-xxtx-0f568ac9da37",
		JwtExpire: 24,
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "zestcart",
		User:     "postgres",
		Passwd:   "myzestcart",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Redis: RedisConfig{
		Addr:   "127.0.0.1:6379",
		Passwd: "",
		DB:     0,
	},
	Storage: StorageConfig{
		Type:      "local",
		PublicURL: "http://127.0.0.1:1980/uploads",
		MaxSizeMB: 8,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/zestcart/zestcart.log",
	},
}

func setEnvValue(name string, f func(v string)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue)
	}
}

func setEnvBoolValue(name string, f func(v bool)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(evalue == "true" || evalue == "1" || evalue == "on")
	}
}

func setEnvIntValue(name string, f func(v int)) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		f(cast.ToInt(evalue))
	}
}

// LoadConfig reads the yaml config file and applies environment
// overrides, falling back to DefaultAppConfig when the file is absent.
func LoadConfig(cfile string) *AppConfig {
	appconfig := DefaultAppConfig
	if cfile != "" {
		if data, err := os.ReadFile(cfile); err == nil {
			appconfig = new(AppConfig)
			if err2 := yaml.Unmarshal(data, appconfig); err2 != nil {
				panic(err2)
			}
		}
	}

	setEnvValue("ZESTCART_SYSTEM_WORKDIR", func(v string) { appconfig.System.Workdir = v })
	setEnvBoolValue("ZESTCART_SYSTEM_DEBUG", func(v bool) { appconfig.System.Debug = v })

	setEnvValue("ZESTCART_WEB_HOST", func(v string) { appconfig.Web.Host = v })
	setEnvValue("ZESTCART_WEB_SECRET", func(v string) { appconfig.Web.Secret = v })
	setEnvIntValue("ZESTCART_WEB_PORT", func(v int) { appconfig.Web.Port = v })

	setEnvValue("ZESTCART_DB_TYPE", func(v string) { appconfig.Database.Type = v })
	setEnvValue("ZESTCART_DB_HOST", func(v string) { appconfig.Database.Host = v })
	setEnvIntValue("ZESTCART_DB_PORT", func(v int) { appconfig.Database.Port = v })
	setEnvValue("ZESTCART_DB_NAME", func(v string) { appconfig.Database.Name = v })
	setEnvValue("ZESTCART_DB_USER", func(v string) { appconfig.Database.User = v })
	setEnvValue("ZESTCART_DB_PWD", func(v string) { appconfig.Database.Passwd = v })
	setEnvBoolValue("ZESTCART_DB_DEBUG", func(v bool) { appconfig.Database.Debug = v })

	setEnvValue("ZESTCART_REDIS_ADDR", func(v string) { appconfig.Redis.Addr = v })
	setEnvValue("ZESTCART_REDIS_PWD", func(v string) { appconfig.Redis.Passwd = v })
	setEnvIntValue("ZESTCART_REDIS_DB", func(v int) { appconfig.Redis.DB = v })

	setEnvValue("ZESTCART_STORAGE_TYPE", func(v string) { appconfig.Storage.Type = v })
	setEnvValue("ZESTCART_STORAGE_PUBLIC_URL", func(v string) { appconfig.Storage.PublicURL = v })
	setEnvValue("ZESTCART_STORAGE_ENDPOINT", func(v string) { appconfig.Storage.Endpoint = v })
	setEnvValue("ZESTCART_STORAGE_TOKEN", func(v string) { appconfig.Storage.Token = v })

	setEnvValue("ZESTCART_LOGGER_MODE", func(v string) { appconfig.Logger.Mode = v })
	setEnvBoolValue("ZESTCART_LOGGER_FILE_ENABLE", func(v bool) { appconfig.Logger.FileEnable = v })

	return appconfig
}
