package services

import (
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"

	"github.com/jointvault/backend/internal/ledger"
)

// minorUnitsPerMajor converts the ledgers' smallest-unit amounts into the
// major-unit decimal ISO 20022 carries.
const minorUnitsPerMajor = 100

// SettlementService renders executed withdrawals as ISO 20022 pacs.008
// credit-transfer messages for the external-holdings settlement collaborator.
type SettlementService struct {
	ledger   *ledger.JointLedger
	currency string
}

func NewSettlementService(l *ledger.JointLedger) *SettlementService {
	return &SettlementService{
		ledger:   l,
		currency: "NGN",
	}
}

// ExportWithdrawal renders an executed withdrawal as pacs.008 XML
// @Summary Export withdrawal settlement message
// @Description Render an executed withdrawal request as an ISO 20022 pacs.008 credit transfer
// @Tags settlement
// @Produce xml
// @Security BearerAuth
// @Param accountId path int true "Account ID"
// @Param requestId path int true "Request ID"
// @Success 200 {string} string "pacs.008 XML"
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /accounts/{accountId}/withdrawals/{requestId}/settlement [get]
func (s *SettlementService) ExportWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid accountId", http.StatusBadRequest, nil)
		return
	}
	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid requestId", http.StatusBadRequest, nil)
		return
	}

	req, err := s.ledger.Request(accountID, requestID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForError(err), nil)
		return
	}
	if !req.Executed {
		SendErrorResponse(w, "request not executed yet", http.StatusConflict, nil)
		return
	}

	doc, err := s.BuildPacs008(req)
	if err != nil {
		log.Printf("[SETTLEMENT] pacs.008 build failed for %d/%d: %v", accountID, requestID, err)
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	xmlData, err := s.ConvertToXML(doc)
	if err != nil {
		log.Printf("[SETTLEMENT] pacs.008 marshal failed for %d/%d: %v", accountID, requestID, err)
		SendErrorResponse(w, err.Error(), http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xmlData))
}

// BuildPacs008 creates a pacs.008 FIToFICustomerCreditTransfer message for an
// executed withdrawal: debtor is the joint account, creditor the requester.
func (s *SettlementService) BuildPacs008(req ledger.RequestView) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	if !req.Executed {
		return nil, fmt.Errorf("withdrawal %d/%d not executed", req.AccountID, req.ID)
	}

	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := time.Now()
	amount := float64(req.Amount) / minorUnitsPerMajor
	endToEnd := fmt.Sprintf("WD-%d-%d", req.AccountID, req.ID)

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(s.currency),
				Value: amount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG", // Clearing
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(msgId)}[0],
					EndToEndId: common.Max35Text(endToEnd),
					TxId:       &[]common.Max35Text{common.Max35Text(endToEnd)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(s.currency),
					Value: amount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier("JOINTVLT")}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(fmt.Sprintf("JOINT-ACCT-%d", req.AccountID))}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier("JOINTVLT")}[0],
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(req.Requester)}[0],
				},
			},
		},
	}

	return doc, nil
}

// ConvertToXML converts an ISO 20022 document to an XML string
func (s *SettlementService) ConvertToXML(doc interface{}) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}
