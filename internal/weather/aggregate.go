package weather

import (
	"math"
	"strings"
	"time"
)

const minutesInDay = 24 * 60

// Aggregate buckets raw forecast samples into one DailyForecast per distinct
// calendar day, in the order the days first appear in the input.
//
// For each day: temps are min/max over the group, precipitation probability
// and humidity are arithmetic means (humidity rounded), and the headline
// condition comes from the representative sample, i.e. the sample whose
// time of day is closest to noon. When two samples are equidistant from noon
// the earlier one in input order wins.
func Aggregate(samples []RawForecastSample) []DailyForecast {
	if len(samples) == 0 {
		return nil
	}

	var order []string
	groups := make(map[string][]RawForecastSample)
	for _, s := range samples {
		day := dayKey(s.TimestampText)
		if _, ok := groups[day]; !ok {
			order = append(order, day)
		}
		groups[day] = append(groups[day], s)
	}

	days := make([]DailyForecast, 0, len(order))
	for _, day := range order {
		group := groups[day]

		rep := group[0]
		repDist := minutesFromNoon(rep.TimestampText)
		tempMin := group[0].Temp
		tempMax := group[0].Temp
		var sumPop, sumHumidity float64

		for i, s := range group {
			if s.Temp < tempMin {
				tempMin = s.Temp
			}
			if s.Temp > tempMax {
				tempMax = s.Temp
			}
			sumPop += s.PrecipProbability
			sumHumidity += s.Humidity

			if i > 0 {
				if d := minutesFromNoon(s.TimestampText); d < repDist {
					rep = s
					repDist = d
				}
			}
		}

		n := float64(len(group))
		days = append(days, DailyForecast{
			Date:               day,
			DayLabel:           dayLabel(day),
			TempMin:            tempMin,
			TempMax:            tempMax,
			WeatherMain:        rep.WeatherMain,
			WeatherDescription: rep.WeatherDescription,
			PrecipProbability:  sumPop / n,
			Humidity:           int(math.Round(sumHumidity / n)),
		})
	}

	return days
}

// dayKey returns the date portion of a "2006-01-02 15:04:05" timestamp.
func dayKey(timestampText string) string {
	if i := strings.IndexByte(timestampText, ' '); i >= 0 {
		return timestampText[:i]
	}
	return timestampText
}

// minutesFromNoon returns the absolute distance of the sample's time of day
// from 12:00, in minutes. Unparseable timestamps sort last so that any valid
// sample beats them.
func minutesFromNoon(timestampText string) int {
	t, err := time.Parse("2006-01-02 15:04:05", timestampText)
	if err != nil {
		return minutesInDay
	}
	d := t.Hour()*60 + t.Minute() - 12*60
	if d < 0 {
		d = -d
	}
	return d
}

// dayLabel derives a short weekday name ("Mon", "Tue", ...) from a day key.
func dayLabel(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return ""
	}
	return t.Weekday().String()[:3]
}
