package htmlparser

// Page - факты о странице, собранные одним проходом по DOM
type Page struct {
	URL  string
	Host string

	Title        string
	Description  string
	Meta         map[string]string
	OG           map[string]string
	Twitter      map[string]string
	HasViewport  bool
	HasCanonical bool
	HTMLLang     string
	WordCount    int

	HeadingCounts    map[string]int
	HeadingTexts     map[string][]string
	HeadingsSequence []string

	HasHeader bool
	HasNav    bool
	HasMain   bool
	HasFooter bool

	Links  LinkStats
	Images ImageStats

	JSONLD           []map[string]any
	JSONLDErrors     []string
	MicrodataTypes   []string
	RDFaVocabularies []string
	HasMicrodata     bool
	HasRDFa          bool

	FormCount            int
	InputWithoutLabel    int
	InputWithoutName     int
	RequiredWithoutLabel int
	InvalidButtons       int
	FormsWithGetMethod   int
	InsecureFormActions  int

	AriaLabels     int
	AriaLabelledBy int
	Roles          int

	// нарушения доступности по правилам; ключ - идентификатор правила
	A11yIssues map[string][]string
}

// LinkStats - сводка по ссылкам
type LinkStats struct {
	Internal      int      `json:"internal"`
	External      int      `json:"external"`
	Broken        int      `json:"broken"`
	WithoutText   int      `json:"withoutText"`
	InsecureBlank int      `json:"insecureBlank"`
	All           []string `json:"-"`
}

// ImageStats - сводка по изображениям
type ImageStats struct {
	Total      int `json:"total"`
	WithAlt    int `json:"withAlt"`
	WithoutAlt int `json:"withoutAlt"`
	EmptyAlt   int `json:"emptyAlt"`
	UselessAlt int `json:"uselessAlt"`
}

func newPage(rawURL string) *Page {
	return &Page{
		URL:           rawURL,
		Meta:          make(map[string]string),
		OG:            make(map[string]string),
		Twitter:       make(map[string]string),
		HeadingCounts: make(map[string]int),
		HeadingTexts:  make(map[string][]string),
		A11yIssues:    make(map[string][]string),
	}
}

func (p *Page) issue(rule, msg string) {
	p.A11yIssues[rule] = append(p.A11yIssues[rule], msg)
}

// HeadingsValid - иерархия заголовков начинается с h1 и не перепрыгивает уровни
func (p *Page) HeadingsValid() bool {
	if len(p.HeadingsSequence) == 0 {
		return true
	}
	var levels []int
	for _, tag := range p.HeadingsSequence {
		levels = append(levels, int(tag[1]-'0'))
	}
	if levels[0] != 1 {
		return false
	}
	prev := levels[0]
	for _, lvl := range levels[1:] {
		if lvl > prev+1 {
			return false
		}
		prev = lvl
	}
	return true
}
