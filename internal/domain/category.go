package domain

// Color is the display color of an air-quality category.
type Color string

const (
	Green  Color = "green"
	Yellow Color = "yellow"
	Red    Color = "red"
	Brown  Color = "brown"
)

// Description is the human-readable label of an air-quality category.
type Description string

const (
	Good     Description = "Good"
	Moderate Description = "Moderate"
	High     Description = "High"
	VeryHigh Description = "Very High"
)

// Category is the qualitative result of an assessment.
type Category struct {
	Color       Color       `json:"color"`
	Description Description `json:"description"`
}

type categoryBand struct {
	low, high float64
	category  Category
}

// Governing scores span 100 (index 0) down to -400 (index 500). Bounds are
// exclusive on both ends.
var categoryBands = [...]categoryBand{
	{-400, -201, Category{Green, Good}},
	{-200, -1, Category{Yellow, Moderate}},
	{0, 50, Category{Red, High}},
	{51, 100, Category{Brown, VeryHigh}},
}

// Classify returns the category whose open interval contains score. Scores on a
// band edge or outside (-400, 100) yield *NoMatchingCategoryError.
func Classify(score float64) (Category, error) {
	for _, b := range categoryBands {
		if b.low < score && score < b.high {
			return b.category, nil
		}
	}
	return Category{}, &NoMatchingCategoryError{Score: score}
}
