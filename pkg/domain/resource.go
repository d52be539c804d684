package domain

import "strconv"

// Resource is a backend REST collection.
type Resource struct {
	Name    string // mirror key
	Label   string
	Path    string // collection path, trailing slash included
	IDField string // identifier key on the wire
}

// ItemPath returns the detail path for id.
func (r Resource) ItemPath(id int64) string {
	return r.Path + strconv.FormatInt(id, 10) + "/"
}

// Resources that are mirrored locally when the backend is unreachable.
var (
	Payments        = Resource{Name: "pagos", Label: "Pagos", Path: "/pagos/pagopersonas/", IDField: "pap_id"}
	Receipts        = Resource{Name: "comprobantes", Label: "Comprobantes", Path: "/pagos/comprobantes/", IDField: "com_id"}
	Prepayments     = Resource{Name: "prepagos", Label: "Prepagos", Path: "/pagos/prepagos/", IDField: "ppa_id"}
	PaymentReceipts = Resource{Name: "pagocomprobantes", Label: "Pago/Comprobante", Path: "/pagos/pagocomprobantes/", IDField: "pco_id"}
	PaymentChanges  = Resource{Name: "pagocambios", Label: "Cambios", Path: "/pagos/pagocambios/", IDField: "pca_id"}
)

// MirroredResources lists every mirrored resource in display order.
var MirroredResources = []Resource{Payments, Receipts, Prepayments, PaymentReceipts, PaymentChanges}

var resourceByName = func() map[string]Resource {
	m := make(map[string]Resource, len(MirroredResources))
	for _, r := range MirroredResources {
		m[r.Name] = r
	}
	return m
}()

// LookupResource returns the mirrored resource with the given mirror key.
func LookupResource(name string) (Resource, bool) {
	r, ok := resourceByName[name]
	return r, ok
}
