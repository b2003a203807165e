// Package meta expone el marcador de versión para change detection por
// polling: los consumidores cachean la última versión vista y re-consultan
// solo cuando cambia. No hay push; la ventana de staleness es el intervalo
// de polling del consumidor.
package meta

import (
	"context"
	"time"
)

// Version es el marcador monotónico. Counter sube en uno por cada escritura
// commiteada (medicinas o ledger); LastUpdated es el instante de la última.
// Un consumidor que observa la versión V ve todo lo commiteado antes de V.
type Version struct {
	Counter     int64
	LastUpdated time.Time
}

type Repository interface {
	Version(ctx context.Context) (Version, error)
}
