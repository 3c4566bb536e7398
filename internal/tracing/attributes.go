package tracing

const (
	ChannelName = "corochan.channel.name"
	ChannelCap  = "corochan.channel.capacity"

	SelectCaseCount = "corochan.select.case_count"
	SelectWinner    = "corochan.select.winner"
)
