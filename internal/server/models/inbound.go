package models

// InboundMedia is a media attachment received from the messaging relay.
type InboundMedia struct {
	From     string `json:"from"`
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}
