package mcpserver

// UsageGuide explains to LLM consumers how catalogue search and unit
// conversion behave.
const UsageGuide = `# Bomberos Toolkit Guide

The toolkit indexes the firefighter reference catalogue: field tools
(communication codes, CPR timer, unit converter) and training modules.

## Searching

- Queries are matched case-insensitively and without accents:
  "atencion" finds "Atención Prehospitalaria".
- A query must have at least 2 characters after trimming. Shorter queries
  return {"hidden": true} with no results. This is not an error.
- A record matches when its title or description contains the query.
  Results keep catalogue order; there is no ranking.
- title_html / description_html wrap each match in <strong>...</strong>.
  Special characters such as "(" or "+" are matched literally.

## Converting units

Call list_units first. Units convert only within one category:

| Category    | Units               |
|-------------|---------------------|
| pressure    | psi, bar, kpa, mmhg |
| flow        | lpm, gpm, lps       |
| length      | m, ft, in, cm       |
| weight      | kg, lb, g, oz       |
| temperature | c, f, k             |

Unit names are case-insensitive; common spellings such as "°C", "L/min"
and "kPa" are accepted.
`
