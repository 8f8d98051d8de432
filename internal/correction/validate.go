package correction

import (
	"shiftcast/pkg/contracts/domain"
)

// ValidateInputs checks venue-level consistency of composer inputs. Row-level
// anomalies (bad shift, negative covers) are handled per row inside Correct;
// this rejects only conditions that invalidate the whole read.
func ValidateInputs(in Inputs) error {
	if in.Venue.VenueID == "" {
		return &ValidationError{Field: "Venue", Message: "venue id is required"}
	}
	for _, row := range in.Forecasts {
		if row.VenueID != in.Venue.VenueID {
			return &ValidationError{
				Field:   "Forecasts",
				Message: "forecast row belongs to a different venue",
				Value:   row.VenueID,
			}
		}
		if row.BusinessDate.IsZero() {
			return &ValidationError{
				Field:   "Forecasts",
				Message: "forecast row has no business date",
				Value:   row.VenueID + "/" + string(row.Shift),
			}
		}
	}
	if in.Bias != nil && in.Bias.VenueID != in.Venue.VenueID {
		return &ValidationError{
			Field:   "Bias",
			Message: "bias record belongs to a different venue",
			Value:   in.Bias.VenueID,
		}
	}
	return nil
}
