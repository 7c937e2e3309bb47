package headless

// visibleTextScript strips non-content elements and returns the text of every text
// node whose nearest element ancestor is rendered. It runs after the HTML snapshot
// so structured-data scripts survive in the captured markup.
const visibleTextScript = `(() => {
  const noise = [
    'script', 'style', 'noscript', 'iframe', 'template', 'svg', 'canvas',
    'ins.adsbygoogle', '[class*="advert" i]', '[id^="ad-" i]', '[class*="ad-slot" i]',
    '[id*="cookie" i]', '[class*="cookie" i]', '[id*="consent" i]', '[class*="consent" i]',
    '[class*="gdpr" i]', '[role="dialog"]', '[aria-modal="true"]', '[class*="modal" i]',
    '[class*="popup" i]'
  ].join(',');
  document.querySelectorAll(noise).forEach((el) => el.remove());

  const cache = new Map();
  const hidden = (el) => {
    if (cache.has(el)) return cache.get(el);
    const style = window.getComputedStyle(el);
    let h = style.display === 'none' || style.visibility === 'hidden' ||
      style.visibility === 'collapse' || style.opacity === '0';
    if (!h && el.getClientRects().length === 0 && style.position !== 'fixed') h = true;
    cache.set(el, h);
    return h;
  };

  const root = document.body || document.documentElement;
  if (!root) return '';
  const walker = document.createTreeWalker(root, NodeFilter.SHOW_TEXT);
  const lines = [];
  let node;
  while ((node = walker.nextNode())) {
    const text = node.nodeValue.replace(/\s+/g, ' ').trim();
    if (!text) continue;
    const parent = node.parentElement;
    if (!parent || hidden(parent)) continue;
    lines.push(text);
  }
  return lines.join('\n');
})()`
