package domain

import "time"

const DateLayout = "2006-01-02"

type Announcement struct {
	ID                   int64     `json:"id"`
	ItemID               string    `json:"itemId"` // "{departmentKey}_{externalId}"
	DepartmentKey        string    `json:"departmentKey"`
	Title                string    `json:"title"`
	DataContents         *string   `json:"dataContents"`
	ApplicationStartDate *string   `json:"applicationStartDate"`
	ApplicationEndDate   *string   `json:"applicationEndDate"`
	WriterName           *string   `json:"writerName"`
	WriterPosition       *string   `json:"writerPosition"`
	WriterPhone          *string   `json:"writerPhone"`
	WriterEmail          *string   `json:"writerEmail"`
	ViewURL              *string   `json:"viewUrl"`
	FileNames            []string  `json:"fileNames"`
	FileURLs             []string  `json:"fileUrls"`
	RegDate              time.Time `json:"regDate"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`

	// DepartmentName is filled in for API responses, it is not stored.
	DepartmentName string `json:"departmentName,omitempty"`
}

// ItemID builds the composite natural key of an announcement.
func ItemID(departmentKey, externalID string) string {
	return departmentKey + "_" + externalID
}

// AnnouncementFilter selects stored announcements. Zero values mean "no filter".
type AnnouncementFilter struct {
	Search        string
	StartDate     *time.Time
	EndDate       *time.Time
	DepartmentKey string
	Limit         int
	Offset        int
}

type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
}

func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
	}
}

type AnnouncementPage struct {
	Data       []Announcement `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// Credential is an OAuth access token for the publishing platform.
type Credential struct {
	UserID      string
	Provider    string
	AccessToken string
	// ExpiresAt is epoch seconds; zero means no known expiry.
	ExpiresAt int64
}

// Expired reports whether the token expiry lies before now.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != 0 && c.ExpiresAt < now.Unix()
}

// Post is a publish request for the external cafe board.
type Post struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	ViewURL string `json:"viewUrl"`
}
