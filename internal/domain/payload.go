package domain

// PayloadKind задаёт тип содержимого рассылки.
type PayloadKind string

const (
	PayloadText     PayloadKind = "text"
	PayloadPhoto    PayloadKind = "photo"
	PayloadVideo    PayloadKind = "video"
	PayloadDocument PayloadKind = "document"
	PayloadLocation PayloadKind = "location"
	PayloadPoll     PayloadKind = "poll"
)

// MediaRef ссылается на файл: либо file_id Telegram, либо внешний URL.
type MediaRef struct {
	FileID string
	URL    string
}

// Empty сообщает, что ссылка не задана.
func (m MediaRef) Empty() bool {
	return m.FileID == "" && m.URL == ""
}

// Poll описывает опрос.
type Poll struct {
	Question string
	Options  []string
}

// Payload — содержимое одной рассылки.
type Payload struct {
	Kind     PayloadKind
	Text     string
	Media    MediaRef
	Caption  string
	Location Location
	Poll     Poll
}
