package log

const (
	// NamespaceKey prefixes every structured field this package defines, so
	// they don't collide with fields a host application logs alongside
	// them.
	NamespaceKey = "corochan"

	ChannelNameKey = NamespaceKey + ".channel.name"
	CapacityKey    = NamespaceKey + ".channel.capacity"

	CaseNameKey    = NamespaceKey + ".select.case"
	CaseCountKey   = NamespaceKey + ".select.cases"
	WinnerKey      = NamespaceKey + ".select.winner"
	DurationKey    = NamespaceKey + ".select.duration_ms"
)
