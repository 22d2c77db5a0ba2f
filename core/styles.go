package core

type Style string

const (
	StyleKandinsky Style = "KANDINSKY"
	StyleUHD       Style = "UHD"
	StyleAnime     Style = "ANIME"
	StyleDefault   Style = "DEFAULT"
)

// StyleOption is one entry of the style menu; Name goes to the provider as is
type StyleOption struct {
	Name    Style  `yaml:"name"`
	Title   string `yaml:"title"`
	TitleEn string `yaml:"title_en"`
	Image   string `yaml:"image"`
}

// Label is the button text
func (s StyleOption) Label() string {
	if s.TitleEn != "" {
		return s.TitleEn
	}
	if s.Title != "" {
		return s.Title
	}
	return string(s.Name)
}

func DefaultStyles() []StyleOption {
	return []StyleOption{
		{Name: StyleKandinsky, Title: "Кандинский", TitleEn: "Kandinsky",
			Image: "https://cdn.fusionbrain.ai/static/download/img-style-kandinsky.png"},
		{Name: StyleUHD, Title: "Детальное фото", TitleEn: "Detailed photo",
			Image: "https://cdn.fusionbrain.ai/static/download/img-style-detail-photo.png"},
		{Name: StyleAnime, Title: "Аниме", TitleEn: "Anime",
			Image: "https://cdn.fusionbrain.ai/static/download/img-style-anime.png"},
		{Name: StyleDefault, Title: "Свой стиль", TitleEn: "No style",
			Image: "https://cdn.fusionbrain.ai/static/download/img-style-personal.png"},
	}
}

// FindStyle looks up a catalog entry by its name
func FindStyle(styles []StyleOption, name string) (StyleOption, bool) {
	for _, s := range styles {
		if string(s.Name) == name {
			return s, true
		}
	}
	return StyleOption{}, false
}
