package v1

type QuickBooksClient struct {
	Transport      *Transport
	Employees      *EmployeeEndpoint
	TimeActivities *TimeActivityEndpoint
}

// NewQuickBooksClient initializes the API client for one company realm.
func NewQuickBooksClient(baseURL, realmID, token string) *QuickBooksClient {
	t := NewTransport(baseURL, realmID, token)
	return &QuickBooksClient{
		Transport:      t,
		Employees:      &EmployeeEndpoint{transport: t},
		TimeActivities: &TimeActivityEndpoint{transport: t},
	}
}
