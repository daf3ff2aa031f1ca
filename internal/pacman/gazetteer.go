package pacman

// Bundled gazetteer of common given and family names used to score person
// candidates, plus the multi-jurisdiction legal-form designator table used
// for company extraction. Both are read-only after process start.

var givenNames = map[string]bool{}

var familyNames = map[string]bool{}

var givenNameList = []string{
	"james", "john", "robert", "michael", "william", "david", "richard",
	"joseph", "thomas", "charles", "christopher", "daniel", "matthew",
	"anthony", "mark", "donald", "steven", "paul", "andrew", "joshua",
	"kenneth", "kevin", "brian", "george", "edward", "ronald", "timothy",
	"jason", "jeffrey", "ryan", "jacob", "gary", "nicholas", "eric",
	"jonathan", "stephen", "larry", "justin", "scott", "brandon", "benjamin",
	"samuel", "gregory", "frank", "alexander", "raymond", "patrick", "jack",
	"dennis", "jerry", "mary", "patricia", "jennifer", "linda", "elizabeth",
	"barbara", "susan", "jessica", "sarah", "karen", "nancy", "lisa",
	"margaret", "betty", "sandra", "ashley", "dorothy", "kimberly", "emily",
	"donna", "michelle", "carol", "amanda", "melissa", "deborah", "stephanie",
	"rebecca", "laura", "sharon", "cynthia", "kathleen", "amy", "shirley",
	"angela", "helen", "anna", "brenda", "pamela", "nicole", "ruth",
	"katherine", "samantha", "christine", "emma", "catherine", "virginia",
	"olivia", "victoria", "rachel", "carolyn", "janet", "maria", "heather",
	"diane", "julie", "joyce", "peter", "hans", "klaus", "werner", "jurgen",
	"dieter", "uwe", "wolfgang", "ivan", "dmitri", "sergei", "vladimir",
	"alexei", "andrei", "mikhail", "nikolai", "oleg", "viktor", "yuri",
	"pierre", "jean", "michel", "philippe", "alain", "bernard", "marc",
	"laurent", "olga", "natalia", "elena", "tatiana", "irina", "svetlana",
	"marco", "giovanni", "luigi", "antonio", "giuseppe", "francesco",
	"carlos", "juan", "jose", "luis", "miguel", "pedro", "francisco",
	"wei", "li", "ming", "chen", "ahmed", "mohammed", "ali", "omar",
	"hassan", "ibrahim", "fatima", "aisha", "yusuf", "mustafa",
}

var familyNameList = []string{
	"smith", "johnson", "williams", "brown", "jones", "garcia", "miller",
	"davis", "rodriguez", "martinez", "hernandez", "lopez", "gonzalez",
	"wilson", "anderson", "thomas", "taylor", "moore", "jackson", "martin",
	"lee", "perez", "thompson", "white", "harris", "sanchez", "clark",
	"ramirez", "lewis", "robinson", "walker", "young", "allen", "king",
	"wright", "scott", "torres", "nguyen", "hill", "flores", "green",
	"adams", "nelson", "baker", "hall", "rivera", "campbell", "mitchell",
	"carter", "roberts", "gomez", "phillips", "evans", "turner", "diaz",
	"parker", "cruz", "edwards", "collins", "reyes", "stewart", "morris",
	"morales", "murphy", "cook", "rogers", "gutierrez", "ortiz", "morgan",
	"cooper", "peterson", "bailey", "reed", "kelly", "howard", "ramos",
	"kim", "cox", "ward", "richardson", "watson", "brooks", "chavez",
	"wood", "james", "bennett", "gray", "mendoza", "ruiz", "hughes",
	"price", "alvarez", "castillo", "sanders", "patel", "myers", "long",
	"ross", "foster", "jimenez", "muller", "schmidt", "schneider",
	"fischer", "weber", "meyer", "wagner", "becker", "schulz", "hoffmann",
	"ivanov", "petrov", "sidorov", "smirnov", "kuznetsov", "popov",
	"volkov", "sokolov", "kozlov", "novak", "dubois", "bernard", "durand",
	"moreau", "laurent", "rossi", "russo", "ferrari", "esposito",
	"bianchi", "romano", "colombo", "ricci", "wang", "zhang", "liu",
	"chen", "yang", "huang", "zhao", "wu", "zhou", "al-rashid", "haddad",
	"khan", "hussain", "ahmed", "rahman", "sharma", "singh", "kumar",
}

// titleCues are context tokens that raise a person candidate's confidence
// when they appear immediately before the candidate.
var titleCues = []string{
	"mr.", "mr", "mrs.", "mrs", "ms.", "ms", "dr.", "dr", "prof.", "prof",
	"sir", "ceo", "cfo", "coo", "cto", "chairman", "chairwoman", "director",
	"president", "founder", "partner", "attorney", "judge", "minister",
	"senator", "secretary", "md", "managing",
}

// legalForms maps a company legal-form designator to its jurisdiction code.
// Matching is case-sensitive for the canonical form; a lowercase index is
// built at startup for tolerant matching.
var legalForms = map[string]string{
	"Ltd":      "GB",
	"Ltd.":     "GB",
	"Limited":  "GB",
	"PLC":      "GB",
	"Plc":      "GB",
	"LLP":      "GB",
	"LLC":      "US",
	"L.L.C.":   "US",
	"Inc":      "US",
	"Inc.":     "US",
	"Corp":     "US",
	"Corp.":    "US",
	"Co.":      "US",
	"GmbH":     "DE",
	"mbH":      "DE",
	"AG":       "DE",
	"KG":       "DE",
	"GmbH & Co. KG": "DE",
	"UG":       "DE",
	"e.V.":     "DE",
	"S.A.":     "FR",
	"SA":       "FR",
	"SARL":     "FR",
	"S.A.R.L.": "FR",
	"SAS":      "FR",
	"EURL":     "FR",
	"S.p.A.":   "IT",
	"SpA":      "IT",
	"S.r.l.":   "IT",
	"Srl":      "IT",
	"B.V.":     "NL",
	"BV":       "NL",
	"N.V.":     "NL",
	"NV":       "NL",
	"S.L.":     "ES",
	"SL":       "ES",
	"S.A.U.":   "ES",
	"AB":       "SE",
	"Oy":       "FI",
	"Oyj":      "FI",
	"A/S":      "DK",
	"ApS":      "DK",
	"AS":       "NO",
	"ASA":      "NO",
	"S.R.O.":   "CZ",
	"s.r.o.":   "CZ",
	"Sp. z o.o.": "PL",
	"S.A. de C.V.": "MX",
	"Pty Ltd":  "AU",
	"Pte Ltd":  "SG",
	"Pte. Ltd.": "SG",
	"K.K.":     "JP",
	"GK":       "JP",
	"OOO":      "RU",
	"ZAO":      "RU",
	"OAO":      "RU",
	"TOV":      "UA",
	"DMCC":     "AE",
	"FZE":      "AE",
	"FZCO":     "AE",
}

// tripwireTerms is the curated categorized risk dictionary scanned by the
// Aho-Corasick automaton. Terms are matched case-insensitively.
var tripwireTerms = map[string][]string{
	"SANCTIONS": {
		"ofac", "sdn list", "specially designated national", "sanctions list",
		"designated under", "asset freeze", "embargoed", "export control",
		"sectoral sanctions", "eu sanctions", "un sanctions", "ofsi",
	},
	"PEP": {
		"politically exposed person", "former minister", "state official",
		"government official", "head of state", "member of parliament",
		"central bank governor", "ruling party",
	},
	"FRAUD": {
		"ponzi scheme", "pyramid scheme", "wire fraud", "securities fraud",
		"investment fraud", "fraudulent", "fake invoices", "advance fee",
		"identity theft", "forged documents", "embezzlement", "misappropriation",
	},
	"MONEY_LAUNDERING": {
		"money laundering", "laundered", "shell company", "shell companies",
		"nominee director", "layering", "structuring", "smurfing",
		"unexplained wealth", "proceeds of crime", "hawala", "cash courier",
	},
	"CORRUPTION": {
		"bribery", "bribe", "kickback", "corruption", "corrupt practices",
		"fcpa violation", "undue advantage", "facilitation payment",
		"influence peddling", "abuse of office",
	},
	"LITIGATION": {
		"indicted", "indictment", "convicted", "class action", "lawsuit",
		"plea agreement", "guilty plea", "court order", "injunction",
		"criminal charges", "under investigation", "subpoena", "asset seizure",
	},
}

func init() {
	for _, n := range givenNameList {
		givenNames[n] = true
	}
	for _, n := range familyNameList {
		familyNames[n] = true
	}
}
