package station

import (
	"strings"

	"stationsim/ocpp/core"
)

// Standard OCPP 1.6 configuration key names.
const (
	KeyAuthorizeRemoteTxRequests  = "AuthorizeRemoteTxRequests"
	KeyHeartBeatInterval          = "HeartBeatInterval"
	KeyHeartbeatInterval          = "HeartbeatInterval"
	KeyNumberOfConnectors         = "NumberOfConnectors"
	KeyConnectionTimeOut          = "ConnectionTimeOut"
	KeySupportedFeatureProfiles   = "SupportedFeatureProfiles"
	KeyLocalAuthListEnabled       = "LocalAuthListEnabled"
	KeyWebSocketPingInterval      = "WebSocketPingInterval"
	KeyReserveConnectorZero       = "ReserveConnectorZeroSupported"
	KeyChargeProfileMaxStackLevel = "ChargeProfileMaxStackLevel"
)

// ConfigurationKey is one entry of the station's configuration store.
// Keys marked invisible are hidden from GetConfiguration but remain
// writable through ChangeConfiguration.
type ConfigurationKey struct {
	Key      string
	Readonly bool
	Visible  bool
	Reboot   bool
	Value    string
}

type Configuration struct {
	keys []*ConfigurationKey
}

func NewConfiguration() *Configuration {
	return &Configuration{}
}

// Add registers a key, replacing any entry with the same name.
func (c *Configuration) Add(key ConfigurationKey) {
	if existing := c.Get(key.Key); existing != nil {
		*existing = key
		return
	}
	k := key
	c.keys = append(c.keys, &k)
}

// Get looks a key up by name, case-insensitively as required for 1.6 keys.
func (c *Configuration) Get(name string) *ConfigurationKey {
	for _, k := range c.keys {
		if strings.EqualFold(k.Key, name) {
			return k
		}
	}
	return nil
}

func (c *Configuration) Value(name string) (string, bool) {
	k := c.Get(name)
	if k == nil {
		return "", false
	}
	return k.Value, true
}

// Set updates the value of an existing key regardless of its readonly flag.
// Command handlers enforce the readonly rule before calling Set.
func (c *Configuration) Set(name, value string) bool {
	k := c.Get(name)
	if k == nil {
		return false
	}
	k.Value = value
	return true
}

// Visible renders every visible key in wire format.
func (c *Configuration) Visible() []core.ConfigurationKey {
	out := make([]core.ConfigurationKey, 0, len(c.keys))
	for _, k := range c.keys {
		if !k.Visible {
			continue
		}
		value := k.Value
		out = append(out, core.ConfigurationKey{Key: k.Key, Readonly: k.Readonly, Value: &value})
	}
	return out
}
