package tracker

// Session is one contiguous interval of active use. Times are
// milliseconds since the Unix epoch; EndTime is nil while the session is open.
type Session struct {
	StartTime int64  `json:"startTime"`
	EndTime   *int64 `json:"endTime,omitempty"`
}

// IsOpen reports whether the session has not been closed yet.
func (s Session) IsOpen() bool {
	return s.EndTime == nil
}

// DailyRecord is one calendar day's accounting. TotalMinutes only ever
// holds minutes from closed sessions.
type DailyRecord struct {
	TotalMinutes int       `json:"totalMinutes"`
	Sessions     []Session `json:"sessions"`
	LastUpdate   int64     `json:"lastUpdate"`
}

// StudyTimeData is the full persisted blob for one user.
type StudyTimeData struct {
	DailyData map[string]*DailyRecord `json:"dailyData"`
	WeekStart string                  `json:"weekStart"`
}

// Totals is returned by UpdateStudyTime.
type Totals struct {
	Today    int `json:"today"`
	ThisWeek int `json:"thisWeek"`
}

// last returns a pointer to the newest session, or nil.
func (r *DailyRecord) last() *Session {
	if len(r.Sessions) == 0 {
		return nil
	}
	return &r.Sessions[len(r.Sessions)-1]
}

// openSession returns the open tail session, or nil.
func (r *DailyRecord) openSession() *Session {
	if s := r.last(); s != nil && s.IsOpen() {
		return s
	}
	return nil
}
