package config

import (
	"errors"
	"io"
	"io/ioutil"
	"net"
	"sort"

	"gopkg.in/yaml.v2"
)

const (
	// DefaultHost is the name the FRITZ!Box answers to inside its own LAN.
	DefaultHost = "fritz.box"
	// DefaultPort is the plain HTTP TR-064 port.
	DefaultPort = "49000"
	// DefaultTLSPort is the HTTPS TR-064 port.
	DefaultTLSPort = "49443"
)

// ErrMissingCredentials is returned by Validate when user or password is not set.
var ErrMissingCredentials = errors.New("user and/or password to log in to the FRITZ!Box are not set")

// Config represents the configuration for the exporter
type Config struct {
	Device      *Device         `yaml:"device"`
	Features    map[string]bool `yaml:"features,omitempty"`
	Definitions []Definition    `yaml:"definitions,omitempty"`
}

// Device represents the monitored router
type Device struct {
	Name     string    `yaml:"name"`
	Address  string    `yaml:"address,omitempty"`
	Port     string    `yaml:"port,omitempty"`
	Srv      SrvRecord `yaml:"srv,omitempty"`
	User     string    `yaml:"user"`
	Password string    `yaml:"password"`
	TLS      bool      `yaml:"tls,omitempty"`
	Insecure bool      `yaml:"insecure,omitempty"`
}

type SrvRecord struct {
	Record string    `yaml:"record"`
	Dns    DnsServer `yaml:"dns,omitempty"`
}

type DnsServer struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// Definition is a metric definition declared in the config file.
type Definition struct {
	Name    string             `yaml:"name"`
	Help    string             `yaml:"help"`
	Kind    string             `yaml:"kind"`
	Service string             `yaml:"service"`
	Action  string             `yaml:"action"`
	Field   string             `yaml:"field"`
	Scale   float64            `yaml:"scale,omitempty"`
	Bool    bool               `yaml:"bool,omitempty"`
	Enum    map[string]float64 `yaml:"enum,omitempty"`
}

// Load reads YAML from reader and unmashals in Config
func Load(r io.Reader) (*Config, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	c := &Config{}
	err = yaml.Unmarshal(b, c)
	if err != nil {
		return nil, err
	}

	if c.Device == nil {
		c.Device = &Device{}
	}
	c.Device.ApplyDefaults()

	return c, nil
}

// Validate checks that everything needed to talk to the device is present.
func (c *Config) Validate() error {
	if c.Device == nil || c.Device.User == "" || c.Device.Password == "" {
		return ErrMissingCredentials
	}

	return nil
}

// EnabledFeatures returns the names of all features switched on in the config file.
func (c *Config) EnabledFeatures() []string {
	var feats []string
	for name, enabled := range c.Features {
		if enabled {
			feats = append(feats, name)
		}
	}
	sort.Strings(feats)

	return feats
}

// ApplyDefaults fills in the default host and port.
func (d *Device) ApplyDefaults() {
	if d.Address == "" && d.Srv.Record == "" {
		d.Address = DefaultHost
	}
	if d.Port == "" {
		d.Port = DefaultPort
		if d.TLS {
			d.Port = DefaultTLSPort
		}
	}
	if d.Name == "" {
		d.Name = d.Address
	}
}

// HostPort returns the address of the TR-064 endpoint.
func (d *Device) HostPort() string {
	return net.JoinHostPort(d.Address, d.Port)
}

// BaseURL returns the scheme and authority every TR-064 request is sent to.
func (d *Device) BaseURL() string {
	scheme := "http"
	if d.TLS {
		scheme = "https"
	}

	return scheme + "://" + d.HostPort()
}
