package model

// Audio is a loaded call recording.
type Audio struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}
