package cockpit

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wactl-dev/wactl/internal/phone"
	"github.com/wactl-dev/wactl/internal/session"
)

// renderHeader renders the top title bar with the session identity.
func (m Model) renderHeader() string {
	s := m.styles

	title := s.HeaderTitle.Render("WACTL")

	clientID := m.snap.ClientID
	if clientID == "" {
		clientID = "-"
	}
	live := "offline"
	if m.snap.Live {
		live = "live"
	}
	stats := s.HeaderStat.Render(fmt.Sprintf(
		"  org %s  |  client %s  |  %s",
		m.snap.OrgID, clientID, live,
	))

	bar := lipgloss.JoinHorizontal(lipgloss.Center, title, stats)
	divider := s.DimText.Render(strings.Repeat("─", m.width))

	return bar + "\n" + divider
}

// renderStatus renders the left panel: code, reason, account and the
// recommended action.
func (m Model) renderStatus() string {
	s := m.styles
	snap := m.snap
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString(s.Label.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Status", s.badgeStyle(snap.Code).Render(statusText(snap.Code)))
	if snap.Reason != "" {
		row("Reason", s.Warning.Render(snap.Reason))
	}
	if snap.Account != nil {
		name := snap.Account.Name
		if name == "" {
			name = "-"
		}
		row("Account", s.Value.Render(name))
		row("Number", s.Value.Render(accountNumber(snap.Account.ID)))
	}
	if snap.Stuck {
		b.WriteString("\n")
		b.WriteString(s.Warning.Render("Connecting is taking longer than expected."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.busy != "" {
		b.WriteString(m.spinner.View() + " " + s.DimText.Render(m.busy+"..."))
	} else if action := snap.Action(nil); action != nil {
		b.WriteString(s.FooterKey.Render("enter") + " " + s.Action.Render(action.Label))
	} else {
		b.WriteString(s.BadgeOK.Render("Connected"))
	}
	b.WriteString("\n")

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(s.ErrorText.Render(m.lastErr))
		b.WriteString("\n")
	}

	return s.PanelLeft.Width(m.leftWidth()).Render(b.String())
}

// renderArtifact renders the right panel with the QR or the pairing code.
func (m Model) renderArtifact() string {
	s := m.styles
	panel := s.PanelRight.Width(m.rightWidth()).Height(m.contentHeight())
	art := m.snap.Artifact

	if art.Empty() {
		msg := "No QR to show"
		if m.snap.Code == session.CodeReady {
			msg = "WhatsApp is linked"
		}
		return panel.Render(s.EmptyState.Width(m.rightWidth()).Render(msg))
	}

	if art.QR != nil {
		title := s.PanelTitle.Render(fmt.Sprintf(" QR #%d ", art.QR.Seq))
		ttl := s.Warning.Render("expired, press enter to regenerate")
		if m.snap.TTL > 0 {
			ttl = s.DimText.Render(fmt.Sprintf("expires in %ds", m.snap.TTL))
		}
		return panel.Render(title + "  " + ttl + "\n" + m.qrText)
	}

	pc := art.PairingCode
	body := s.PanelTitle.Render(" Pairing code ") + "\n\n" +
		s.PairingCode.Render(pc.Code) + "\n\n" +
		s.DimText.Render("On the phone "+phone.Mask(pc.Phone)+": Linked devices > Link with phone number")
	return panel.Render(body)
}

// renderFooter renders the keybinding help bar at the bottom.
func (m Model) renderFooter() string {
	s := m.styles

	if m.confirmLogout {
		return s.Footer.Render(
			s.OverlayTitle.Render("Log out? ") +
				s.FooterKey.Render("y") + s.FooterDesc.Render(" confirm  ") +
				s.FooterKey.Render("n/esc") + s.FooterDesc.Render(" cancel"),
		)
	}

	var bindings []string
	for _, kb := range m.keys.ShortHelp() {
		h := kb.Help()
		bindings = append(bindings, s.FooterKey.Render(h.Key)+" "+s.FooterDesc.Render(h.Desc))
	}

	divider := s.DimText.Render(strings.Repeat("─", m.width))
	return divider + "\n" + s.Footer.Render(strings.Join(bindings, "  "))
}

// renderConfirmOverlay renders a centered logout confirmation dialog.
func (m Model) renderConfirmOverlay() string {
	s := m.styles
	content := s.OverlayTitle.Render("Log Out") + "\n\n" +
		"Unlink WhatsApp for organization " + s.Action.Render(m.snap.OrgID) + "?\n\n" +
		s.FooterKey.Render("y") + " confirm  " +
		s.FooterKey.Render("n") + " cancel"

	overlay := s.Overlay.Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay)
}

func statusText(code session.Code) string {
	return strings.ReplaceAll(string(code), "_", " ")
}

// accountNumber strips the WhatsApp JID suffix and masks the number.
func accountNumber(id string) string {
	if i := strings.IndexAny(id, "@:"); i >= 0 {
		id = id[:i]
	}
	return phone.Mask(id)
}

// leftWidth returns the width of the left panel.
func (m Model) leftWidth() int {
	return int(float64(m.width) * 0.4)
}

// rightWidth returns the width of the right panel.
func (m Model) rightWidth() int {
	return m.width - m.leftWidth() - 4 // account for borders and padding
}

// contentHeight returns the usable content height.
func (m Model) contentHeight() int {
	return m.height - 5 // header + footer + padding
}
