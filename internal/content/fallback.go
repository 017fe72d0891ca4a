package content

import "github.com/raffaelramalhorosa/folio-api/internal/models"

const fallbackModified = "2024-12-20T00:00:00Z"

// JournalFallback is the fixed sample list served when the journal store is
// unavailable.
func JournalFallback() []models.ListEntry {
	return []models.ListEntry{
		{
			ID:           "fallback-1",
			Title:        "Building the Future",
			Date:         "Dec 20, 2024",
			Excerpt:      "Exploring the intersection of technology and human creativity. How AI tools are reshaping the way we build and create digital experiences.",
			Category:     "tech",
			Status:       "published",
			Tags:         []string{"AI", "development", "future"},
			LastModified: fallbackModified,
		},
		{
			ID:           "fallback-2",
			Title:        "Leadership in Remote Teams",
			Date:         "Dec 15, 2024",
			Excerpt:      "Lessons learned from leading distributed teams across different time zones. The importance of clear communication and trust in virtual environments.",
			Category:     "leadership",
			Status:       "published",
			Tags:         []string{"remote work", "leadership", "teams"},
			LastModified: fallbackModified,
		},
		{
			ID:           "fallback-3",
			Title:        "The Art of Problem Solving",
			Date:         "Dec 10, 2024",
			Excerpt:      "Every complex problem has a simple solution waiting to be discovered. My approach to breaking down challenges and finding elegant solutions.",
			Category:     "creative",
			Status:       "published",
			Tags:         []string{"problem solving", "creativity", "methodology"},
			LastModified: fallbackModified,
		},
	}
}

// WritingFallback is served when the writing feed is unavailable.
func WritingFallback() []models.ListEntry {
	return []models.ListEntry{
		{
			ID:           "writing-fallback-1",
			Title:        "Notes on Shipping Small",
			Date:         "Nov 30, 2024",
			Excerpt:      "Why small, frequent releases beat big launches, and how to keep a team shipping without burning out.",
			Category:     "leadership",
			Status:       "published",
			Tags:         []string{"delivery", "teams"},
			LastModified: fallbackModified,
		},
		{
			ID:           "writing-fallback-2",
			Title:        "Designing for Failure",
			Date:         "Nov 12, 2024",
			Excerpt:      "Every integration fails eventually. Serving something useful when it does is a product decision, not an afterthought.",
			Category:     "tech",
			Status:       "published",
			Tags:         []string{"resilience", "architecture"},
			LastModified: fallbackModified,
		},
	}
}
