package jalaali

// Static official holiday table, maintained by hand per Jalaali year.
// Curated fact data, not derived: religious holidays move against the solar
// calendar, so there is no rule to compute them from.
var staticHolidays = []string{
	"1404/01/01",
	"1404/01/02",
	"1404/01/03",
	"1404/01/04",
	"1404/01/11",
	"1404/01/12",
	"1404/01/13",
	"1404/02/04",
	"1404/03/14",
	"1404/03/15",
	"1404/03/16",
	"1404/03/24",
	"1404/04/14",
	"1404/04/15",
	"1404/05/23",
	"1404/05/31",
	"1404/06/02",
	"1404/06/10",
	"1404/06/19",
	"1404/09/03",
	"1404/10/13",
	"1404/10/27",
	"1404/11/15",
	"1404/11/22",
	"1404/12/20",
	"1404/12/29",
	"1405/01/01",
	"1405/01/02",
	"1405/01/03",
	"1405/01/04",
	"1405/01/12",
	"1405/01/13",
	"1405/01/25",
	"1405/03/07",
	"1405/03/14",
	"1405/03/15",
	"1405/04/04",
	"1405/04/05",
	"1405/05/13",
	"1405/05/21",
	"1405/05/23",
	"1405/05/31",
	"1405/06/09",
	"1405/08/23",
	"1405/10/02",
	"1405/10/16",
	"1405/11/04",
	"1405/11/22",
	"1405/12/10",
	"1405/12/19",
	"1405/12/20",
	"1405/12/29",
}

// Holidays returns the set of holiday day numbers within the given Jalaali
// month. Entries the table cannot express as valid dates are skipped.
func Holidays(year, month int) map[int]bool {
	days := make(map[int]bool)
	for _, s := range staticHolidays {
		d, err := ParseDate(s)
		if err != nil {
			continue
		}
		if d.Year == year && d.Month == month {
			days[d.Day] = true
		}
	}
	return days
}
