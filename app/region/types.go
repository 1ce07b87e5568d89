package region

// SourceTypeRSS is the only feed type the reader understands.
const SourceTypeRSS = "rss"

type Region struct {
	Slug    string   // Derived from filename (without .yml extension)
	Name    string   `yaml:"name"`
	Zone    string   `yaml:"zone"`
	Sources []Source `yaml:"sources"`
}

type Source struct {
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	Type           string `yaml:"type"`
	ExtractContent bool   `yaml:"extract_content"` // fetch article text when the entry has no summary
}
