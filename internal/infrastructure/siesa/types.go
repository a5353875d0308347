package siesa

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/erp/supplier-portal/internal/domain/integration"
)

// reportResponse is the envelope returned by ejecutarconsultaestandar
type reportResponse struct {
	Codigo  json.RawMessage `json:"codigo"`
	Mensaje string          `json:"mensaje"`
	Detalle *struct {
		Table []reportRow `json:"Table"`
	} `json:"detalle"`
}

// reportRow is one purchase-order line of the API_v2_Compras_Ordenes query
type reportRow struct {
	TipoDocto            text `json:"f420_id_tipo_docto"`
	ConsecDocto          text `json:"f420_consec_docto"`
	IDInterno            text `json:"f420_id_interno"`
	RazonSocialProv      text `json:"f200_razon_social_prov"`
	NitProv              text `json:"f200_nit_prov"`
	RazonSocialComprador text `json:"f200_razon_social_comprador"`
	Fecha                text `json:"f420_fecha"`
	FechaTSAprobacion    text `json:"f420_fecha_ts_aprobacion"`
	DescEstado           text `json:"f420_desc_estado"`
	DescripcionCategoria text `json:"f150_descripcion"`
	Referencia           text `json:"f120_referencia"`
	DescripcionItem      text `json:"f120_descripcion"`
	CantPedida           text `json:"f421_cant_pedida"`
	PrecioUnitario       text `json:"f421_precio_unitario"`
	VlrImp               text `json:"f421_vlr_imp"`
	VlrNeto              text `json:"f421_vlr_neto"`
	VlrBruto             text `json:"f421_vlr_bruto"`
	VlrDsctoGlobal       text `json:"f421_vlr_dscto_global"`
	Notas                text `json:"f421_notas"`
}

// text accepts JSON strings, numbers, booleans and null, keeping the source text.
type text string

// UnmarshalJSON implements json.Unmarshaler
func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	*t = text(data)
	return nil
}

func (t text) String() string {
	return strings.TrimSpace(string(t))
}

// toRawLine converts a report row to the domain raw line
func (r reportRow) toRawLine() integration.RawLine {
	return integration.RawLine{
		DocumentType:   r.TipoDocto.String(),
		DocumentNumber: r.ConsecDocto.String(),
		InternalID:     r.IDInterno.String(),
		ProviderNIT:    r.NitProv.String(),
		ProviderName:   r.RazonSocialProv.String(),
		BuyerName:      r.RazonSocialComprador.String(),
		OrderDate:      r.Fecha.String(),
		ApprovedAt:     r.FechaTSAprobacion.String(),
		Status:         r.DescEstado.String(),
		Category:       r.DescripcionCategoria.String(),
		Reference:      r.Referencia.String(),
		Description:    r.DescripcionItem.String(),
		Quantity:       r.CantPedida.String(),
		UnitPrice:      r.PrecioUnitario.String(),
		TaxValue:       r.VlrImp.String(),
		NetValue:       r.VlrNeto.String(),
		GrossValue:     r.VlrBruto.String(),
		GlobalDiscount: r.VlrDsctoGlobal.String(),
		Notes:          r.Notas.String(),
	}
}

// pageStatus classifies a report page body
type pageStatus int

const (
	pageOK pageStatus = iota
	pageEmpty
	pageInvalid
)

// parseReport decodes a report page body
func parseReport(body []byte) ([]reportRow, pageStatus) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, pageEmpty
	}
	var resp reportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, pageInvalid
	}
	if resp.Detalle == nil || len(resp.Detalle.Table) == 0 {
		return nil, pageEmpty
	}
	return resp.Detalle.Table, pageOK
}
