package domain

// ChannelKind distinguishes the conversation surfaces the bot participates in.
type ChannelKind string

const (
	ChannelText   ChannelKind = "text"
	ChannelThread ChannelKind = "thread"
	ChannelDM     ChannelKind = "dm"
)

// Channel is a handle to one conversation. For threads the channel ID doubles
// as the ID of the thread-starter message.
type Channel struct {
	ID   string
	Kind ChannelKind
}
