// Package models provides the data structures used throughout the application.
package models

import (
	"encoding/xml"
	"strings"
)

// CAMT053Document represents the root structure of a CAMT.053 XML document.
// The XMLName captures the document namespace so the parser can verify the
// schema family (camt.053.001.02 through .10 share this shape).
type CAMT053Document struct {
	XMLName       xml.Name `xml:"Document"`
	BkToCstmrStmt struct {
		Stmt []Statement `xml:"Stmt"`
	} `xml:"BkToCstmrStmt"`
}

// Statement represents one bank statement block within the document.
type Statement struct {
	ID      string  `xml:"Id"`
	CreDtTm string  `xml:"CreDtTm"`
	FrToDt  *Period `xml:"FrToDt"`
	Acct    Account `xml:"Acct"`
	Ntry    []Entry `xml:"Ntry"`
}

// Period represents the statement's declared reporting period.
type Period struct {
	FrDtTm string `xml:"FrDtTm"`
	ToDtTm string `xml:"ToDtTm"`
}

// Account represents the statement's bank account header.
type Account struct {
	ID struct {
		IBAN string `xml:"IBAN"`
		Othr struct {
			ID string `xml:"Id"`
		} `xml:"Othr"`
	} `xml:"Id"`
	Ccy  string `xml:"Ccy"`
	Ownr struct {
		Nm string `xml:"Nm"`
	} `xml:"Ownr"`
}

// Identifier returns the account identifier, IBAN first with the
// proprietary Othr/Id as fallback. IBANs are normalized: spaces stripped
// and uppercased, so formatting differences between banks don't break
// account matching.
func (a Account) Identifier() string {
	if a.ID.IBAN != "" {
		return NormalizeIBAN(a.ID.IBAN)
	}
	return strings.TrimSpace(a.ID.Othr.ID)
}

// NormalizeIBAN strips spaces and uppercases an IBAN.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

// Amount represents a monetary amount with its currency attribute.
type Amount struct {
	Value string `xml:",chardata"`
	Ccy   string `xml:"Ccy,attr"`
}

// EntryStatus handles both CAMT.053 status layouts: older versions carry the
// code as character data (<Sts>BOOK</Sts>), newer ones nest it (<Sts><Cd>).
type EntryStatus struct {
	Raw string `xml:",chardata"`
	Cd  string `xml:"Cd"`
}

// Code returns the effective status code.
func (s EntryStatus) Code() string {
	if s.Cd != "" {
		return strings.TrimSpace(s.Cd)
	}
	return strings.TrimSpace(s.Raw)
}

// EntryDate handles both date layouts: plain dates (<Dt>) in version .04 and
// datetimes (<DtTm>) in version .10.
type EntryDate struct {
	Dt   string `xml:"Dt"`
	DtTm string `xml:"DtTm"`
}

// Text returns whichever representation is present.
func (d EntryDate) Text() string {
	if d.Dt != "" {
		return strings.TrimSpace(d.Dt)
	}
	return strings.TrimSpace(d.DtTm)
}

// Entry represents one transaction entry in a statement.
type Entry struct {
	NtryRef      string       `xml:"NtryRef"`
	Amt          Amount       `xml:"Amt"`
	CdtDbtInd    string       `xml:"CdtDbtInd"` // CRDT or DBIT
	Sts          EntryStatus  `xml:"Sts"`
	BookgDt      EntryDate    `xml:"BookgDt"`
	ValDt        EntryDate    `xml:"ValDt"`
	AcctSvcrRef  string       `xml:"AcctSvcrRef"`
	BkTxCd       BankTxCode   `xml:"BkTxCd"`
	Chrgs        Charges      `xml:"Chrgs"`
	NtryDtls     EntryDetails `xml:"NtryDtls"`
	RmtInf       Remittance   `xml:"RmtInf"`
	AddtlNtryInf string       `xml:"AddtlNtryInf"`
}

// Charges represents entry-level charges deducted by the bank.
type Charges struct {
	TtlChrgsAndTaxAmt Amount `xml:"TtlChrgsAndTaxAmt"`
}

// BankTxCode represents the bank transaction code of an entry.
type BankTxCode struct {
	Domn struct {
		Cd   string `xml:"Cd"`
		Fmly struct {
			Cd        string `xml:"Cd"`
			SubFmlyCd string `xml:"SubFmlyCd"`
		} `xml:"Fmly"`
	} `xml:"Domn"`
	Prtry struct {
		Cd   string `xml:"Cd"`
		Issr string `xml:"Issr"`
	} `xml:"Prtry"`
}

// EntryDetails represents the transaction details of an entry.
type EntryDetails struct {
	TxDtls []TransactionDetails `xml:"TxDtls"`
}

// TransactionDetails represents detailed transaction information.
type TransactionDetails struct {
	Refs struct {
		MsgID      string `xml:"MsgId"`
		EndToEndID string `xml:"EndToEndId"`
		TxID       string `xml:"TxId"`
	} `xml:"Refs"`
	RmtInf    Remittance     `xml:"RmtInf"`
	RltdPties RelatedParties `xml:"RltdPties"`
	RltdAgts  RelatedAgents  `xml:"RltdAgts"`
}

// Remittance represents remittance information, unstructured and structured.
type Remittance struct {
	Ustrd []string `xml:"Ustrd"`
	Strd  []struct {
		CdtrRefInf CreditorReference `xml:"CdtrRefInf"`
	} `xml:"Strd"`
}

// CreditorReference represents a structured creditor reference, typically a
// Swiss QRR reference.
type CreditorReference struct {
	Tp struct {
		CdOrPrtry struct {
			Cd    string `xml:"Cd"`
			Prtry string `xml:"Prtry"`
		} `xml:"CdOrPrtry"`
	} `xml:"Tp"`
	Ref string `xml:"Ref"`
}

// IsQRR reports whether the reference is typed as a Swiss QRR reference.
func (c CreditorReference) IsQRR() bool {
	return c.Tp.CdOrPrtry.Prtry == "QRR"
}

// RelatedParties represents debtor/creditor information of a transaction.
type RelatedParties struct {
	Dbtr      PartyIdentification `xml:"Dbtr"`
	DbtrAcct  PartyAccount        `xml:"DbtrAcct"`
	UltmtDbtr PartyIdentification `xml:"UltmtDbtr"`
	Cdtr      PartyIdentification `xml:"Cdtr"`
	CdtrAcct  PartyAccount        `xml:"CdtrAcct"`
	UltmtCdtr PartyIdentification `xml:"UltmtCdtr"`
}

// PartyIdentification represents a named party. Some banks nest the name in
// a Pty element, others put address lines only.
type PartyIdentification struct {
	Nm  string `xml:"Nm"`
	Pty struct {
		Nm string `xml:"Nm"`
	} `xml:"Pty"`
	PstlAdr struct {
		AdrLine []string `xml:"AdrLine"`
	} `xml:"PstlAdr"`
}

// Name returns the best available party name: Nm first, then the nested
// Pty/Nm, then the first address line that does not look like a street
// address (no digits in its first characters).
func (p PartyIdentification) Name() string {
	if p.Nm != "" {
		return strings.TrimSpace(p.Nm)
	}
	if p.Pty.Nm != "" {
		return strings.TrimSpace(p.Pty.Nm)
	}
	for _, line := range p.PstlAdr.AdrLine {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !leadingDigits(line) {
			return line
		}
	}
	return ""
}

// leadingDigits reports whether any of the first ten characters is a digit,
// which usually marks an address line rather than a name.
func leadingDigits(s string) bool {
	limit := 10
	for i, r := range s {
		if i >= limit {
			break
		}
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

// PartyAccount represents the account of a related party.
type PartyAccount struct {
	ID struct {
		IBAN string `xml:"IBAN"`
		Othr struct {
			ID string `xml:"Id"`
		} `xml:"Othr"`
	} `xml:"Id"`
}

// RelatedAgents represents the financial institutions of a transaction.
type RelatedAgents struct {
	DbtrAgt struct {
		FinInstnID struct {
			BIC string `xml:"BIC"`
			Nm  string `xml:"Nm"`
		} `xml:"FinInstnId"`
	} `xml:"DbtrAgt"`
	CdtrAgt struct {
		FinInstnID struct {
			BIC string `xml:"BIC"`
			Nm  string `xml:"Nm"`
		} `xml:"FinInstnId"`
	} `xml:"CdtrAgt"`
}

// GetFirstTxDetails returns the first transaction details if available.
func (e *Entry) GetFirstTxDetails() *TransactionDetails {
	if len(e.NtryDtls.TxDtls) > 0 {
		return &e.NtryDtls.TxDtls[0]
	}
	return nil
}

// IsCredit returns true if the entry is a credit (incoming) transaction.
func (e *Entry) IsCredit() bool {
	return e.CdtDbtInd == "CRDT"
}

// IsDebit returns true if the entry is a debit (outgoing) transaction.
func (e *Entry) IsDebit() bool {
	return e.CdtDbtInd == "DBIT"
}

// Counterparty returns the name of the other side of the movement: the
// creditor for outgoing money, the debtor for incoming money. Falls back to
// the ultimate party and finally the party's bank.
func (e *Entry) Counterparty() string {
	txDetails := e.GetFirstTxDetails()
	if txDetails == nil {
		return ""
	}
	if e.IsDebit() {
		if nm := txDetails.RltdPties.Cdtr.Name(); nm != "" {
			return nm
		}
		if nm := txDetails.RltdPties.UltmtCdtr.Name(); nm != "" {
			return nm
		}
		return strings.TrimSpace(txDetails.RltdAgts.CdtrAgt.FinInstnID.Nm)
	}
	if nm := txDetails.RltdPties.Dbtr.Name(); nm != "" {
		return nm
	}
	if nm := txDetails.RltdPties.UltmtDbtr.Name(); nm != "" {
		return nm
	}
	return strings.TrimSpace(txDetails.RltdAgts.DbtrAgt.FinInstnID.Nm)
}

// StructuredReference returns the structured creditor reference of the
// entry, searching transaction details first and the entry-level remittance
// block second. The bool result is true when the reference is QRR-typed.
func (e *Entry) StructuredReference() (string, bool) {
	if txDetails := e.GetFirstTxDetails(); txDetails != nil {
		for _, strd := range txDetails.RmtInf.Strd {
			if strd.CdtrRefInf.Ref != "" {
				return strd.CdtrRefInf.Ref, strd.CdtrRefInf.IsQRR()
			}
		}
	}
	for _, strd := range e.RmtInf.Strd {
		if strd.CdtrRefInf.Ref != "" {
			return strd.CdtrRefInf.Ref, strd.CdtrRefInf.IsQRR()
		}
	}
	return "", false
}

// BuildDescription assembles the human-readable description: the additional
// entry information when present, otherwise the joined unstructured
// remittance lines.
func (e *Entry) BuildDescription() string {
	if info := strings.TrimSpace(e.AddtlNtryInf); info != "" {
		return cleanDescription(info)
	}

	var parts []string
	if txDetails := e.GetFirstTxDetails(); txDetails != nil {
		for _, ustrd := range txDetails.RmtInf.Ustrd {
			if ustrd = strings.TrimSpace(ustrd); ustrd != "" {
				parts = append(parts, ustrd)
			}
		}
	}
	return cleanDescription(strings.Join(parts, " - "))
}

func cleanDescription(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(s)
}
