package domain

const ProtocolAirPlay = "airplay"

// Device is an AirPlay receiver resolved by discovery. Values are replaced,
// never mutated, once handed to the registry.
type Device struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Host             string       `json:"host"`
	Port             int          `json:"port"`
	Address          string       `json:"address"`
	BaseURL          string       `json:"base_url"`
	Model            string       `json:"model,omitempty"`
	Features         string       `json:"features,omitempty"`
	RequiresPassword bool         `json:"requires_password"`
	Protocol         string       `json:"protocol"`
	Capabilities     Capabilities `json:"capabilities"`
}

// Resolved reports whether the device carries an endpoint commands can be sent to.
func (d Device) Resolved() bool {
	return d.BaseURL != ""
}

type Capabilities struct {
	SupportsFileSource bool         `json:"supports_file_source"`
	SupportsURLSource  bool         `json:"supports_url_source"`
	SupportsHLSM3U8URL bool         `json:"supports_hls_m3u8_url"`
	SupportsVolume     bool         `json:"supports_volume"`
	Limitations        []Limitation `json:"limitations"`
}

type Limitation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
