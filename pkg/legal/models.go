package legal

// Case is a court case handled by the practice.
type Case struct {
	ID        int64   `json:"id"`
	Number    string  `json:"number"`
	Year      int     `json:"year"`
	Circuit   string  `json:"circuit,omitempty"`
	Specialty string  `json:"specialty,omitempty"`
	Status    string  `json:"status"`
	ClientID  int64   `json:"clientId"`
	Client    *Client `json:"client,omitempty"`
	CourtID   *int64  `json:"courtId,omitempty"`
	Court     *Court  `json:"court,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
	IsDeleted bool    `json:"isDeleted"`
}

// CreateCase is the body of POST /cases/create.
type CreateCase struct {
	Number    string `json:"number"`
	Year      int    `json:"year"`
	Circuit   string `json:"circuit,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	Status    string `json:"status,omitempty"`
	ClientID  int64  `json:"clientId"`
	CourtID   *int64 `json:"courtId,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// UpdateCase is the body of PUT /cases/update.
type UpdateCase struct {
	ID int64 `json:"id"`
	CreateCase
}

// CaseSearch filters POST /cases/list.
type CaseSearch struct {
	Q        string `json:"q,omitempty"`
	ClientID int64  `json:"clientId,omitempty"`
	CourtID  int64  `json:"courtId,omitempty"`
	Status   string `json:"status,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
}

// Client is a client of the practice.
type Client struct {
	ID            int64  `json:"id"`
	FullName      string `json:"fullName"`
	NationalID    *int64 `json:"nationalId,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	DateOfBirth   string `json:"dateOfBirth,omitempty"`
	Gender        string `json:"gender,omitempty"`
	MaritalStatus string `json:"maritalStatus,omitempty"`
	Profession    string `json:"profession,omitempty"`
	IsActive      bool   `json:"isActive"`
}

// CreateClient is the body of POST /clients/create.
type CreateClient struct {
	FullName      string `json:"fullName"`
	NationalID    *int64 `json:"nationalId,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	DateOfBirth   string `json:"dateOfBirth,omitempty"`
	Gender        string `json:"gender,omitempty"`
	MaritalStatus string `json:"maritalStatus,omitempty"`
	Profession    string `json:"profession,omitempty"`
}

// UpdateClient is the body of PUT /clients/update.
type UpdateClient struct {
	ID       int64 `json:"id"`
	IsActive bool  `json:"isActive"`
	CreateClient
}

// ClientSearch filters POST /clients/list. The zero value lists everything.
type ClientSearch struct {
	Q        string `json:"q,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
}

// Court is a court where sessions are held.
type Court struct {
	ID          int64    `json:"id"`
	NameAr      string   `json:"nameAr"`
	NameEn      string   `json:"nameEn,omitempty"`
	CourtTypeID *int64   `json:"courtTypeId,omitempty"`
	Governorate string   `json:"governorate,omitempty"`
	City        string   `json:"city,omitempty"`
	AddressLine string   `json:"addressLine,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	IsActive    bool     `json:"isActive"`
}

// Name returns the English name if set, otherwise the Arabic one.
func (c *Court) Name() string {
	if c.NameEn != "" {
		return c.NameEn
	}
	return c.NameAr
}

// CreateCourt is the body of POST /courts/create.
type CreateCourt struct {
	NameAr      string   `json:"nameAr"`
	NameEn      string   `json:"nameEn,omitempty"`
	CourtTypeID *int64   `json:"courtTypeId,omitempty"`
	Governorate string   `json:"governorate,omitempty"`
	City        string   `json:"city,omitempty"`
	AddressLine string   `json:"addressLine,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Email       string   `json:"email,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	IsActive    bool     `json:"isActive"`
}

// UpdateCourt is the body of PUT /courts/update.
type UpdateCourt struct {
	ID int64 `json:"id"`
	CreateCourt
}

// CourtSearch filters POST /courts/list.
type CourtSearch struct {
	Q           string `json:"q,omitempty"`
	Governorate string `json:"governorate,omitempty"`
	City        string `json:"city,omitempty"`
	CourtTypeID int64  `json:"courtTypeId,omitempty"`
	IsActive    *bool  `json:"isActive,omitempty"`
	Page        int    `json:"page,omitempty"`
	PageSize    int    `json:"pageSize,omitempty"`
}

// Session is a hearing scheduled for a case.
type Session struct {
	ID          int64  `json:"id"`
	CaseID      int64  `json:"caseId"`
	Case        *Case  `json:"case,omitempty"`
	CourtID     *int64 `json:"courtId,omitempty"`
	Court       *Court `json:"court,omitempty"`
	Title       string `json:"title,omitempty"`
	StartsAtUTC string `json:"startsAtUtc"`
	EndsAtUTC   string `json:"endsAtUtc,omitempty"`
	Room        string `json:"room,omitempty"`
	JudgeName   string `json:"judgeName,omitempty"`
	Status      string `json:"status,omitempty"`
	Notes       string `json:"notes,omitempty"`
	IsActive    bool   `json:"isActive"`
}

// CreateSession is the body of POST /sessions/create.
type CreateSession struct {
	CaseID      int64  `json:"caseId"`
	CourtID     *int64 `json:"courtId,omitempty"`
	Title       string `json:"title,omitempty"`
	StartsAtUTC string `json:"startsAtUtc"`
	EndsAtUTC   string `json:"endsAtUtc,omitempty"`
	Room        string `json:"room,omitempty"`
	JudgeName   string `json:"judgeName,omitempty"`
	Status      string `json:"status,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// UpdateSession is the body of PUT /sessions/update.
type UpdateSession struct {
	ID       int64 `json:"id"`
	IsActive *bool `json:"isActive,omitempty"`
	CreateSession
}

// SessionSearch filters POST /sessions/list.
type SessionSearch struct {
	CaseID   int64  `json:"caseId,omitempty"`
	CourtID  int64  `json:"courtId,omitempty"`
	FromUTC  string `json:"fromUtc,omitempty"`
	ToUTC    string `json:"toUtc,omitempty"`
	Status   string `json:"status,omitempty"`
	Q        string `json:"q,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"pageSize,omitempty"`
}
