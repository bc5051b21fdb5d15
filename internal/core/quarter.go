package core

// PeriodDate implements period.Keyed
func (q EPSQuarter) PeriodDate() string { return q.Period }

// FiscalQuarter implements period.Keyed
func (q EPSQuarter) FiscalQuarter() (quarter, year int) { return q.Quarter, q.Year }

// HasValue reports whether the quarter carries an actual or an estimate
func (q EPSQuarter) HasValue() bool {
	return q.Actual != nil || q.Estimate != nil
}

// Fill returns q with every missing field copied from other. Populated
// fields are never overwritten.
func (q EPSQuarter) Fill(other EPSQuarter) EPSQuarter {
	if q.Period == "" {
		q.Period = other.Period
	}
	if q.Quarter == 0 && q.Year == 0 {
		q.Quarter, q.Year = other.Quarter, other.Year
	}
	if q.Actual == nil {
		q.Actual = other.Actual
	}
	if q.Estimate == nil {
		q.Estimate = other.Estimate
	}
	if q.SurprisePercent == nil {
		q.SurprisePercent = other.SurprisePercent
	}
	if q.Source == "" {
		q.Source = other.Source
	}
	return q
}

// PeriodDate implements period.Keyed
func (r RevenueQuarter) PeriodDate() string { return r.Date }

// FiscalQuarter implements period.Keyed
func (r RevenueQuarter) FiscalQuarter() (quarter, year int) { return r.Quarter, r.Year }

// HasValue reports whether the quarter carries an actual or an estimate
func (r RevenueQuarter) HasValue() bool {
	return r.RevenueActual != nil || r.RevenueEstimate != nil
}

// Fill returns r with every missing field copied from other
func (r RevenueQuarter) Fill(other RevenueQuarter) RevenueQuarter {
	if r.Date == "" {
		r.Date = other.Date
	}
	if r.Quarter == 0 && r.Year == 0 {
		r.Quarter, r.Year = other.Quarter, other.Year
	}
	if r.RevenueActual == nil {
		r.RevenueActual = other.RevenueActual
	}
	if r.RevenueEstimate == nil {
		r.RevenueEstimate = other.RevenueEstimate
	}
	if r.Source == "" {
		r.Source = other.Source
	}
	return r
}
