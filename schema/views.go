package schema

// View is one selectable single-metric view for the presentation layer.
type View struct {
	Column      Column `json:"column"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Conclusion  string `json:"conclusion"`
}

// DefaultView is shown when the consumer has not chosen one.
const DefaultView = CompositeScoreColumn

// Views is the fixed catalogue of selectable views, in display order.
var Views = []View{
	{
		Column:      SoilHazardColumn,
		Label:       "Soil Hazard",
		Description: "Likelihood that the district's predominant soil amplifies seismic waves, rated 0 to 10. Sandy or soft soils rate higher than rock or conglomerate.",
		Conclusion:  "Villa El Salvador, Chorrillos, Ventanilla and Callao sit on sandy or soft soils that amplify shaking. La Molina and Chaclacayo, built on rock, are the safest on this factor.",
	},
	{
		Column:      DensityColumn,
		Label:       "Population Density",
		Description: "Inhabitants per square kilometre. Higher density complicates evacuation and raises the number of people exposed.",
		Conclusion:  "Small districts such as Breña, Lince and Surquillo concentrate very high populations. This is not direct structural damage but a large social risk for evacuation and emergency response.",
	},
	{
		Column:      SubstandardHousingColumn,
		Label:       "Substandard Housing",
		Description: "Number of dwellings built with vulnerable materials such as adobe or quincha. More dwellings means a higher risk of collapse.",
		Conclusion:  "Ventanilla and San Juan de Lurigancho lead this category with thousands of dwellings that may not withstand a major earthquake, pointing to an urgent need for structural reinforcement.",
	},
	{
		Column:      CasualtiesColumn,
		Label:       "Casualties",
		Description: "Historical number of people affected by seismic events from 2000 to 2025, an indicator of past vulnerability.",
		Conclusion:  "Villa El Salvador and Ate show high past social vulnerability and, without intervention, could again be among the most affected districts.",
	},
	{
		Column:      DestroyedHousingColumn,
		Label:       "Destroyed Housing",
		Description: "Historical number of dwellings destroyed by seismic events from 2000 to 2025, reflecting how fragile construction has been.",
		Conclusion:  "Past destruction in Villa El Salvador and Punta Hermosa marks the areas where infrastructure has historically been most fragile.",
	},
	{
		Column:      CompositeScoreColumn,
		Label:       "Composite Risk",
		Description: "Mean of the five normalized metrics scaled to 0-10. Higher values indicate greater combined vulnerability.",
		Conclusion:  "Ventanilla, Villa El Salvador and San Juan de Lurigancho combine poor soils with large amounts of substandard housing. La Molina, San Borja and San Isidro pair rigid soils with almost no precarious construction.",
	},
}

// ViewColumns is the enumerated set of columns a consumer may select.
var ViewColumns = func() []Column {
	cols := make([]Column, len(Views))
	for i, v := range Views {
		cols[i] = v.Column
	}
	return cols
}()

// LookupView returns the view for column c.
func LookupView(c Column) (View, bool) {
	for _, v := range Views {
		if v.Column == c {
			return v, true
		}
	}
	return View{}, false
}

// ViewNames returns the selectable column names as plain strings.
func ViewNames() []string {
	names := make([]string, len(ViewColumns))
	for i, c := range ViewColumns {
		names[i] = string(c)
	}
	return names
}
