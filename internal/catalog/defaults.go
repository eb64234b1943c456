package catalog

// defaultEntries is the built-in catalog used when no configuration is
// present: eighteen European destinations, all enabled. Keywords feed the
// watcher's relevance filter.
var defaultEntries = []Entry{
	{Code: "NO", Name: "Norway", Enabled: true, Keywords: []string{"norway", "norwegian", "norge", "oslo", "bergen", "trondheim", "ntnu"}},
	{Code: "SE", Name: "Sweden", Enabled: true, Keywords: []string{"sweden", "swedish", "sverige", "stockholm", "gothenburg", "uppsala"}},
	{Code: "DE", Name: "Germany", Enabled: true, Keywords: []string{"germany", "german", "deutschland", "berlin", "munich", "daad"}},
	{Code: "NL", Name: "Netherlands", Enabled: true, Keywords: []string{"netherlands", "dutch", "holland", "amsterdam", "delft"}},
	{Code: "DK", Name: "Denmark", Enabled: true, Keywords: []string{"denmark", "danish", "danmark", "copenhagen", "aarhus"}},
	{Code: "FI", Name: "Finland", Enabled: true, Keywords: []string{"finland", "finnish", "suomi", "helsinki", "aalto"}},
	{Code: "FR", Name: "France", Enabled: true, Keywords: []string{"france", "french", "paris", "campus france", "eiffel"}},
	{Code: "BE", Name: "Belgium", Enabled: true, Keywords: []string{"belgium", "belgian", "brussels", "leuven", "ghent"}},
	{Code: "AT", Name: "Austria", Enabled: true, Keywords: []string{"austria", "austrian", "vienna", "graz"}},
	{Code: "CH", Name: "Switzerland", Enabled: true, Keywords: []string{"switzerland", "swiss", "zurich", "geneva", "eth", "epfl"}},
	{Code: "IT", Name: "Italy", Enabled: true, Keywords: []string{"italy", "italian", "italia", "rome", "milan", "bologna"}},
	{Code: "ES", Name: "Spain", Enabled: true, Keywords: []string{"spain", "spanish", "españa", "madrid", "barcelona"}},
	{Code: "PT", Name: "Portugal", Enabled: true, Keywords: []string{"portugal", "portuguese", "lisbon", "porto"}},
	{Code: "IE", Name: "Ireland", Enabled: true, Keywords: []string{"ireland", "irish", "dublin", "galway"}},
	{Code: "PL", Name: "Poland", Enabled: true, Keywords: []string{"poland", "polish", "polska", "warsaw", "krakow"}},
	{Code: "CZ", Name: "Czech Republic", Enabled: true, Keywords: []string{"czech", "czechia", "prague", "brno"}},
	{Code: "HU", Name: "Hungary", Enabled: true, Keywords: []string{"hungary", "hungarian", "budapest", "stipendium hungaricum"}},
	{Code: "EU", Name: "European Union", Enabled: true, Keywords: []string{"europe", "european union", "erasmus", "marie curie", "horizon"}},
}

// DefaultEntries returns a copy of the built-in table so callers cannot
// mutate it.
func DefaultEntries() []Entry {
	entries := make([]Entry, len(defaultEntries))
	copy(entries, defaultEntries)
	return entries
}
