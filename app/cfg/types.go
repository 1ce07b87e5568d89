package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath string

	// Application configuration
	RegionsDir        string
	Port              string
	SchedulerInterval int
	RefreshOnStart    bool
	RefreshOnce       bool
	APIAccessKey      string

	// Ingestion
	Markets          []string
	DefaultStartDate time.Time
	HTTPTimeout      int
	MaxEntries       int

	// Classification service
	UseModel     bool
	Models       []string
	DefaultModel string
	LLMBaseURL   string
	LLMAPIKey    string
	LLMRPM       int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTPTimeout) * time.Second
}
